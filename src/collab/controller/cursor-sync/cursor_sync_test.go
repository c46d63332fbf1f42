package cursorsync

import (
	"context"
	"sync"
	"testing"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	viewplugin "github.com/knowtis/knowtis-collab/src/collab/entity/view-plugin"
	"github.com/knowtis/knowtis-collab/src/collab/internal/awareness"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

type fakeView struct {
	mu          sync.Mutex
	size        int
	decorations []entity.Decoration
	draws       int
}

func (v *fakeView) DocSize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *fakeView) SetDecorations(decorations []entity.Decoration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.decorations = decorations
	v.draws++
}

func (v *fakeView) setSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.size = size
}

func (v *fakeView) snapshot() ([]entity.Decoration, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.decorations, v.draws
}

type pluginFixture struct {
	plugin    *Plugin
	methods   *viewplugin.Methods
	local     *awareness.Awareness
	remote    *awareness.Awareness
	view      *fakeView
	scheduler *frame.Manual
	stats     tally.TestScope
}

func newPluginFixture(t *testing.T, user entity.UserInfo) *pluginFixture {
	clk := clock.New()
	f := &pluginFixture{
		local:     awareness.New(1, clk),
		remote:    awareness.New(2, clk),
		view:      &fakeView{size: 10},
		scheduler: frame.NewManual(),
		stats:     tally.NewTestScope("", nil),
	}
	f.plugin = New(Params{
		Awareness: f.local,
		User:      user,
		View:      f.view,
		Scheduler: f.scheduler,
		Logger:    zap.NewNop().Sugar(),
		Stats:     f.stats,
	})
	info, err := f.plugin.StartupInfo(context.Background())
	require.NoError(t, err)
	require.NoError(t, info.Validate())
	f.methods = info.Methods
	return f
}

// publishRemote writes the remote peer's state and delivers it to the local registry.
func (f *pluginFixture) publishRemote(state *entity.AwarenessState) {
	f.remote.SetLocalState(state)
	f.local.Apply(f.remote.Update([]uint64{2}), "peer")
}

func TestPluginCreateSeedsUser(t *testing.T) {
	tests := []struct {
		name string
		user entity.UserInfo
		want entity.UserInfo
	}{
		{
			name: "configured user",
			user: entity.UserInfo{Name: "Swift Fox", Color: "#f87171"},
			want: entity.UserInfo{Name: "Swift Fox", Color: "#f87171"},
		},
		{
			name: "anonymous default",
			want: entity.UserInfo{Name: "Anonymous", Color: "#999999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPluginFixture(t, tt.user)
			require.NoError(t, f.methods.OnCreate(context.Background()))

			state := f.local.LocalState()
			require.NotNil(t, state)
			require.NotNil(t, state.User)
			assert.Equal(t, tt.want, *state.User)
			assert.Nil(t, state.Cursor)
		})
	}
}

func TestPluginPublishesSelection(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	f.scheduler.Flush()

	require.NoError(t, f.methods.OnSelectionChange(ctx, entity.CursorPosition{Anchor: 2, Head: 5}))
	state := f.local.LocalState()
	require.NotNil(t, state.Cursor)
	assert.Equal(t, entity.CursorPosition{Anchor: 2, Head: 5}, *state.Cursor)
}

func TestPluginSkipsSelectionWhileRedrawPending(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	require.Equal(t, 1, f.scheduler.Pending())

	require.NoError(t, f.methods.OnSelectionChange(ctx, entity.CursorPosition{Anchor: 1, Head: 1}))
	assert.Nil(t, f.local.LocalState().Cursor)

	f.scheduler.Flush()
	require.NoError(t, f.methods.OnSelectionChange(ctx, entity.CursorPosition{Anchor: 1, Head: 1}))
	assert.NotNil(t, f.local.LocalState().Cursor)
}

func TestPluginCoalescesUpdates(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	f.scheduler.Flush()

	for i := 0; i < 5; i++ {
		f.publishRemote(&entity.AwarenessState{
			User:   &entity.UserInfo{Name: "B", Color: "#222222"},
			Cursor: &entity.CursorPosition{Anchor: i, Head: i},
		})
	}
	assert.Equal(t, 1, f.scheduler.Pending())
	_, draws := f.view.snapshot()
	assert.Equal(t, 1, draws)

	// The document shrinks between the request and the frame.
	f.view.setSize(2)
	assert.Equal(t, 1, f.scheduler.Flush())

	decorations, draws := f.view.snapshot()
	assert.Equal(t, 2, draws)
	require.Len(t, decorations, 1)
	assert.Equal(t, "cursor-2", decorations[0].Key)
	assert.Equal(t, 2, decorations[0].From)
	assert.EqualValues(t, 4, f.stats.Snapshot().Counters()["cursor_sync.coalesced_updates+"].Value())

	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "#222222"},
		Cursor: &entity.CursorPosition{Anchor: 0, Head: 1},
	})
	assert.Equal(t, 1, f.scheduler.Pending())
}

func TestPluginRedrawDrawsNamedColors(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "blue"},
		Cursor: &entity.CursorPosition{Anchor: 0, Head: 1},
	})
	f.scheduler.Flush()

	decorations, draws := f.view.snapshot()
	assert.Equal(t, 1, draws)
	require.Len(t, decorations, 2)
	assert.Equal(t, "cursor-2", decorations[0].Key)
	assert.Equal(t, "blue", decorations[0].Color)
	assert.Zero(t, f.stats.Snapshot().Counters()["cursor_sync.decoration_errors+"].Value())
}

// hookedView runs hook once, while the plugin is in the middle of a redraw.
type hookedView struct {
	fakeView
	hook func()
}

func (v *hookedView) DocSize() int {
	if hook := v.hook; hook != nil {
		v.hook = nil
		hook()
	}
	return v.fakeView.DocSize()
}

func TestPluginRedrawsUpdateArrivingDuringFrame(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	view := &hookedView{fakeView: fakeView{size: 10}}
	f.plugin.view = view
	require.NoError(t, f.methods.OnCreate(ctx))
	f.scheduler.Flush()

	view.hook = func() {
		f.publishRemote(&entity.AwarenessState{
			User:   &entity.UserInfo{Name: "B", Color: "#222222"},
			Cursor: &entity.CursorPosition{Anchor: 7, Head: 7},
		})
	}
	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "#222222"},
		Cursor: &entity.CursorPosition{Anchor: 1, Head: 1},
	})
	require.Equal(t, 1, f.scheduler.Flush())

	decorations, _ := view.snapshot()
	require.Len(t, decorations, 1)
	assert.Equal(t, 1, decorations[0].From, "first frame drew the snapshot it read")
	require.Equal(t, 1, f.scheduler.Pending(), "the late update queues another frame")

	require.Equal(t, 1, f.scheduler.Flush())
	decorations, draws := view.snapshot()
	assert.Equal(t, 3, draws)
	require.Len(t, decorations, 1)
	assert.Equal(t, 7, decorations[0].From)
	assert.Zero(t, f.scheduler.Pending())

	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "#222222"},
		Cursor: &entity.CursorPosition{Anchor: 3, Head: 3},
	})
	assert.Equal(t, 1, f.scheduler.Pending(), "plugin is idle again")
}

func TestPluginRemoteRemovalClearsMarkers(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "#222"},
		Cursor: &entity.CursorPosition{Anchor: 0, Head: 0},
	})
	f.scheduler.Flush()
	decorations, _ := f.view.snapshot()
	require.Len(t, decorations, 1)

	f.publishRemote(nil)
	f.scheduler.Flush()
	decorations, _ = f.view.snapshot()
	assert.Empty(t, decorations)
}

func TestPluginDestroy(t *testing.T) {
	ctx := context.Background()
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.methods.OnCreate(ctx))
	f.scheduler.Flush()
	require.NoError(t, f.methods.OnSelectionChange(ctx, entity.CursorPosition{Anchor: 1, Head: 2}))
	require.Equal(t, 1, f.scheduler.Pending())

	require.NoError(t, f.methods.OnDestroy(ctx))
	require.NoError(t, f.plugin.Destroy(ctx))

	state := f.local.LocalState()
	require.NotNil(t, state)
	assert.Nil(t, state.Cursor)
	assert.NotNil(t, state.User)
	assert.Zero(t, f.scheduler.Pending(), "pending frame is cancelled")

	f.publishRemote(&entity.AwarenessState{
		User:   &entity.UserInfo{Name: "B", Color: "#222"},
		Cursor: &entity.CursorPosition{Anchor: 0, Head: 0},
	})
	assert.Zero(t, f.scheduler.Pending())
	require.NoError(t, f.methods.OnSelectionChange(ctx, entity.CursorPosition{Anchor: 3, Head: 3}))
	assert.Nil(t, f.local.LocalState().Cursor)
	require.NoError(t, f.methods.OnCreate(ctx))
	assert.Zero(t, f.scheduler.Pending())
}

func TestPluginDestroyBeforeCreate(t *testing.T) {
	f := newPluginFixture(t, entity.UserInfo{Name: "A", Color: "#111"})
	require.NoError(t, f.plugin.Destroy(context.Background()))
	assert.Nil(t, f.local.LocalState().User)
}

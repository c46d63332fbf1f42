package editor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/controller/editor"
	"github.com/knowtis/knowtis-collab/src/collab/controller/relay"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	peertransport "github.com/knowtis/knowtis-collab/src/collab/gateway/peer-transport"
	"github.com/knowtis/knowtis-collab/src/collab/internal/broadcast"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock/clockmock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/core"
	"github.com/knowtis/knowtis-collab/src/collab/internal/frame"
	"github.com/knowtis/knowtis-collab/src/collab/internal/persistence"
	"github.com/knowtis/knowtis-collab/src/collab/repository/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	_e2eNote = "n1"
	_e2eWait = 2 * time.Second
	_e2eTick = 10 * time.Millisecond
)

type fakeTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// network is what tabs of one browser share: the cross-tab channel and the peer rooms.
type network struct {
	relayBus *broadcast.Bus
	peerBus  *broadcast.Bus
	time     *fakeTime
	clk      clock.Clock
}

func newNetwork(t *testing.T) *network {
	ctrl := gomock.NewController(t)
	ft := &fakeTime{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	clk := clockmock.NewMockClock(ctrl)
	clk.EXPECT().Now().DoAndReturn(ft.Now).AnyTimes()
	clk.EXPECT().NewTicker(gomock.Any()).DoAndReturn(func(time.Duration) clock.Ticker {
		ticker := clockmock.NewMockTicker(ctrl)
		ticker.EXPECT().C().Return((<-chan time.Time)(make(chan time.Time))).AnyTimes()
		ticker.EXPECT().Stop().AnyTimes()
		return ticker
	}).AnyTimes()

	return &network{
		relayBus: broadcast.NewBus(),
		peerBus:  broadcast.NewBus(),
		time:     ft,
		clk:      clk,
	}
}

type viewRecorder struct {
	mu          sync.Mutex
	size        int
	decorations []entity.Decoration
}

func (v *viewRecorder) DocSize() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

func (v *viewRecorder) SetDecorations(decorations []entity.Decoration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.decorations = decorations
}

func (v *viewRecorder) Decorations() []entity.Decoration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.decorations
}

type tab struct {
	relay     relay.Controller
	sessions  session.Repository
	editor    editor.Controller
	scheduler *frame.Manual
}

func newTab(t *testing.T, n *network, peerBus *broadcast.Bus, user entity.CollaborativeUser) *tab {
	logger := zap.NewNop().Sugar()
	stats := tally.NewTestScope("", nil)
	cfg := core.DefaultCollabConfig()
	lc := fxtest.NewLifecycle(t)

	r, err := relay.New(relay.Params{
		Opener:    n.relayBus,
		Collab:    cfg,
		User:      user,
		Clock:     n.clk,
		Logger:    logger,
		Stats:     stats,
		Lifecycle: lc,
	})
	require.NoError(t, err)

	sessions, err := session.New(session.Params{
		Relay:       r,
		Transport:   peertransport.NewTransport(peertransport.NewChannelDialer(peerBus), n.clk, logger, 0),
		Persistence: persistence.NewStore(persistence.NewMemoryBackend(), 500, logger, stats),
		Collab:      cfg,
		User:        user,
		Logger:      logger,
		Stats:       stats,
		Lifecycle:   lc,
	})
	require.NoError(t, err)

	scheduler := frame.NewManual()
	e := editor.New(editor.Params{
		Sessions:  sessions,
		Relay:     r,
		Scheduler: scheduler,
		User:      user,
		Logger:    logger,
		Stats:     stats,
		Lifecycle: lc,
	})

	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })
	return &tab{relay: r, sessions: sessions, editor: e, scheduler: scheduler}
}

func TestRemoteCaretAppearsWithinOneFrame(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	tabB := newTab(t, n, n.peerBus, entity.CollaborativeUser{ID: "b", Name: "Calm Owl", Color: "#22d3ee"})
	viewB := &viewRecorder{size: 20}
	sessionB, err := tabB.editor.Open(ctx, _e2eNote, viewB)
	require.NoError(t, err)

	tabA := newTab(t, n, n.peerBus, entity.CollaborativeUser{ID: "a", Name: "Swift Fox", Color: "#f87171"})
	sessionA, err := tabA.editor.Open(ctx, _e2eNote, &viewRecorder{size: 20})
	require.NoError(t, err)
	tabA.scheduler.Flush()

	sessionA.SelectionChanged(ctx, entity.CursorPosition{Anchor: 3, Head: 3})
	clientA := sessionA.Provider().Awareness().ClientID()
	require.Eventually(t, func() bool {
		for _, entry := range sessionB.Provider().Awareness().States() {
			if entry.ClientID == clientA && entry.State.Cursor != nil {
				return *entry.State.Cursor == entity.CursorPosition{Anchor: 3, Head: 3}
			}
		}
		return false
	}, _e2eWait, _e2eTick)

	tabB.scheduler.Flush()
	decorations := viewB.Decorations()
	require.Len(t, decorations, 1)
	assert.Equal(t, entity.DecorationCaret, decorations[0].Kind)
	assert.Equal(t, "cursor-"+entity.ClientIDString(clientA), decorations[0].Key)
	assert.Equal(t, 3, decorations[0].From)
	assert.Equal(t, "Swift Fox", decorations[0].Label)
}

func TestPresenceExpiresAfterStaleWindow(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	tabB := newTab(t, n, n.peerBus, entity.CollaborativeUser{ID: "b", Name: "Calm Owl", Color: "#22d3ee"})
	sessionB, err := tabB.editor.Open(ctx, _e2eNote, &viewRecorder{size: 20})
	require.NoError(t, err)

	tabA, err := n.relayBus.Open(ctx, core.DefaultCollabConfig().ChannelName)
	require.NoError(t, err)
	defer tabA.Close()
	require.NoError(t, tabA.Post(ctx, []byte(`{"type":"presence","noteId":"n1","user":{"id":"u1","name":"Fox","color":"#f87171"}}`)))

	require.Eventually(t, func() bool {
		return len(sessionB.ActiveUsers()) == 1
	}, _e2eWait, _e2eTick)
	users := sessionB.ActiveUsers()
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "Fox", users[0].Name)

	n.time.Advance(13 * time.Second)
	assert.Equal(t, []string{_e2eNote}, tabB.relay.Sweep())
	assert.Empty(t, sessionB.ActiveUsers())
}

func TestEditsConvergeAcrossTabs(t *testing.T) {
	ctx := context.Background()
	n := newNetwork(t)
	// Separate peer networks, so only the cross-tab channel carries updates.
	tabA := newTab(t, n, broadcast.NewBus(), entity.CollaborativeUser{ID: "a", Name: "Swift Fox", Color: "#f87171"})
	tabB := newTab(t, n, broadcast.NewBus(), entity.CollaborativeUser{ID: "b", Name: "Calm Owl", Color: "#22d3ee"})

	sessionB, err := tabB.editor.Open(ctx, _e2eNote, &viewRecorder{size: 0})
	require.NoError(t, err)
	sessionA, err := tabA.editor.Open(ctx, _e2eNote, &viewRecorder{size: 0})
	require.NoError(t, err)

	require.NoError(t, sessionA.Content().Insert(0, "hello world"))
	require.Eventually(t, func() bool {
		return sessionB.Content().String() == "hello world"
	}, _e2eWait, _e2eTick)

	docA := tabA.sessions.GetDocument(ctx, _e2eNote)
	docB := tabB.sessions.GetDocument(ctx, _e2eNote)
	state := docA.EncodeStateAsUpdate()
	require.NoError(t, docB.ApplyUpdate(state, nil))
	require.NoError(t, docB.ApplyUpdate(state, nil))
	assert.Equal(t, "hello world", sessionB.Content().String())
	assert.Equal(t, sessionA.Content().String(), sessionB.Content().String())
}

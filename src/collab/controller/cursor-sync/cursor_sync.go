// Package cursorsync renders the carets and selections of remote peers in an editor view and publishes the local
// selection to them.
package cursorsync

import (
	"context"
	"sync"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	viewplugin "github.com/knowtis/knowtis-collab/src/collab/entity/view-plugin"
	"github.com/knowtis/knowtis-collab/src/collab/internal/awareness"
	"github.com/knowtis/knowtis-collab/src/collab/internal/frame"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const _nameKey = "cursor-sync"

// View is the part of an editor view the plugin reads from and draws into.
type View interface {
	// DocSize returns the current length of the document shown in the view.
	DocSize() int
	// SetDecorations replaces every remote-peer marker in the view.
	SetDecorations(decorations []entity.Decoration)
}

// Params defines the dependencies of one plugin instance.
type Params struct {
	Awareness *awareness.Awareness
	User      entity.UserInfo
	View      View
	Scheduler frame.Scheduler
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
}

// Plugin keeps one view and one awareness registry in step.
type Plugin struct {
	awareness *awareness.Awareness
	user      entity.UserInfo
	view      View
	scheduler frame.Scheduler
	builder   *DecorationBuilder
	logger    *zap.SugaredLogger
	stats     tally.Scope

	mu          sync.Mutex
	scheduled   bool
	dirty       bool
	cancelFrame func()
	unsubscribe func()
	destroyed   bool
}

// New returns a plugin that is inert until its create method runs.
func New(p Params) *Plugin {
	user := p.User
	if user.Name == "" {
		user.Name = "Anonymous"
	}
	if user.Color == "" {
		user.Color = "#999999"
	}
	logger := p.Logger.With("plugin", _nameKey)
	stats := p.Stats.SubScope("cursor_sync")
	return &Plugin{
		awareness: p.Awareness,
		user:      user,
		view:      p.View,
		scheduler: p.Scheduler,
		builder:   NewDecorationBuilder(logger, stats),
		logger:    logger,
		stats:     stats,
	}
}

// StartupInfo returns PluginInfo for this plugin.
func (p *Plugin) StartupInfo(ctx context.Context) (viewplugin.PluginInfo, error) {
	priorities := map[string]viewplugin.Priority{
		viewplugin.MethodCreate:          viewplugin.PriorityRegular,
		viewplugin.MethodSelectionChange: viewplugin.PriorityRegular,
		viewplugin.MethodDestroy:         viewplugin.PriorityHigh,
	}

	methods := &viewplugin.Methods{
		PluginNameKey:     _nameKey,
		OnCreate:          p.onCreate,
		OnSelectionChange: p.onSelectionChange,
		OnDestroy:         p.onDestroy,
	}

	return viewplugin.PluginInfo{
		Priorities: priorities,
		Methods:    methods,
		NameKey:    _nameKey,
	}, nil
}

func (p *Plugin) onCreate(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed || p.unsubscribe != nil {
		p.mu.Unlock()
		return nil
	}
	p.unsubscribe = p.awareness.OnUpdate(p.onAwarenessUpdate)
	p.mu.Unlock()

	p.awareness.SetLocalUser(p.user)
	return nil
}

// onSelectionChange publishes the local selection unless a redraw is pending, so the view's own dispatch does not
// echo back into the registry.
func (p *Plugin) onSelectionChange(ctx context.Context, selection entity.CursorPosition) error {
	p.mu.Lock()
	skip := p.scheduled || p.destroyed
	p.mu.Unlock()
	if skip {
		return nil
	}
	p.awareness.SetLocalCursor(&selection)
	return nil
}

func (p *Plugin) onAwarenessUpdate(_ awareness.Change, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduled || p.destroyed {
		// A running redraw may already hold a stale snapshot; it checks dirty when done.
		p.dirty = p.scheduled
		p.stats.Counter("coalesced_updates").Inc(1)
		return
	}
	p.scheduled = true
	p.cancelFrame = p.scheduler.RequestFrame(p.redraw)
}

func (p *Plugin) redraw() {
	defer p.finishRedraw()

	p.mu.Lock()
	destroyed := p.destroyed
	p.dirty = false
	p.mu.Unlock()
	if destroyed {
		return
	}

	states := RemoteUserStates(p.awareness.States(), p.awareness.ClientID())
	decorations := p.builder.BuildDecorations(states, p.view.DocSize())
	p.view.SetDecorations(decorations)
	p.stats.Counter("redraws").Inc(1)
}

// finishRedraw returns to idle, or queues one more frame when the registry changed after the snapshot was taken.
func (p *Plugin) finishRedraw() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty && !p.destroyed {
		p.dirty = false
		p.cancelFrame = p.scheduler.RequestFrame(p.redraw)
		return
	}
	p.scheduled = false
	p.dirty = false
	p.cancelFrame = nil
}

func (p *Plugin) onDestroy(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	unsubscribe, cancelFrame := p.unsubscribe, p.cancelFrame
	p.unsubscribe, p.cancelFrame = nil, nil
	p.mu.Unlock()

	if cancelFrame != nil {
		cancelFrame()
	}
	if unsubscribe != nil {
		unsubscribe()
		p.awareness.SetLocalCursor(nil)
	}
	return nil
}

// Destroy clears the local cursor and stops listening to the registry. It is safe to call more than once.
func (p *Plugin) Destroy(ctx context.Context) error {
	return p.onDestroy(ctx)
}

// Package editor attaches collaboration to editor views: one Session per open view of a note.
package editor

import (
	"context"
	"fmt"
	"sync"

	cursorsync "github.com/knowtis/knowtis-collab/src/collab/controller/cursor-sync"
	"github.com/knowtis/knowtis-collab/src/collab/controller/relay"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	viewplugin "github.com/knowtis/knowtis-collab/src/collab/entity/view-plugin"
	"github.com/knowtis/knowtis-collab/src/collab/internal/frame"
	"github.com/knowtis/knowtis-collab/src/collab/repository/session"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _errPluginReturnedError = "plugin %q returned error: %v"

// Params defines the dependencies that will be available to this controller.
type Params struct {
	fx.In

	Sessions  session.Repository
	Relay     relay.Controller
	Scheduler frame.Scheduler
	User      entity.CollaborativeUser
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Lifecycle fx.Lifecycle
}

// Controller opens collaborative editing sessions for editor views.
type Controller interface {
	// Open binds a view to a note: its content, its peer transport, remote cursors and the presence heartbeat.
	Open(ctx context.Context, noteID string, view cursorsync.View) (*Session, error)
	// OpenCount returns the number of sessions that have not been closed.
	OpenCount() int
}

type controller struct {
	sessions  session.Repository
	relay     relay.Controller
	scheduler frame.Scheduler
	user      entity.CollaborativeUser
	logger    *zap.SugaredLogger
	stats     tally.Scope

	mu   sync.Mutex
	open map[*Session]struct{}
}

// New creates the editor controller. Sessions still open on stop are closed before the repository tears down.
func New(p Params) Controller {
	c := &controller{
		sessions:  p.Sessions,
		relay:     p.Relay,
		scheduler: p.Scheduler,
		user:      p.User,
		logger:    p.Logger.With("component", "editor"),
		stats:     p.Stats.SubScope("editor"),
		open:      make(map[*Session]struct{}),
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			c.closeAll(ctx)
			return nil
		},
	})
	return c
}

func (c *controller) Open(ctx context.Context, noteID string, view cursorsync.View) (*Session, error) {
	if noteID == "" {
		return nil, fmt.Errorf("opening editor session: note id is required")
	}
	if view == nil {
		return nil, fmt.Errorf("opening editor session for note %q: view is required", noteID)
	}

	content := c.sessions.GetContentHandle(ctx, noteID)
	provider := c.sessions.GetProvider(ctx, noteID)

	plugin := cursorsync.New(cursorsync.Params{
		Awareness: provider.Awareness(),
		User:      c.user.Info(),
		View:      view,
		Scheduler: c.scheduler,
		Logger:    c.logger,
		Stats:     c.stats,
	})
	info, err := plugin.StartupInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting plugin startup info: %w", err)
	}
	methods, err := viewplugin.BuildMethodLists([]viewplugin.PluginInfo{info})
	if err != nil {
		return nil, fmt.Errorf("prioritizing plugin methods: %w", err)
	}

	s := &Session{
		noteID:   noteID,
		content:  content,
		provider: provider,
		relay:    c.relay,
		sessions: c.sessions,
		methods:  methods,
		logger:   c.logger.With("note", noteID),
		onClose:  c.forget,
	}
	s.executePluginMethods(ctx, viewplugin.MethodCreate, func(ctx context.Context, m *viewplugin.Methods) error {
		return m.OnCreate(ctx)
	})
	s.stopHeartbeat = c.relay.StartHeartbeat(noteID)

	c.mu.Lock()
	c.open[s] = struct{}{}
	c.stats.Gauge("open_sessions").Update(float64(len(c.open)))
	c.mu.Unlock()
	c.logger.Infow("editor session opened", "note", noteID, "room", provider.Room())
	return s, nil
}

func (c *controller) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open)
}

func (c *controller) forget(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.open, s)
	c.stats.Gauge("open_sessions").Update(float64(len(c.open)))
}

func (c *controller) closeAll(ctx context.Context) {
	c.mu.Lock()
	open := make([]*Session, 0, len(c.open))
	for s := range c.open {
		open = append(open, s)
	}
	c.mu.Unlock()

	for _, s := range open {
		s.Close(ctx)
	}
}

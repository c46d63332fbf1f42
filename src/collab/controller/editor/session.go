package editor

import (
	"context"
	"sync"

	cursorsync "github.com/knowtis/knowtis-collab/src/collab/controller/cursor-sync"
	"github.com/knowtis/knowtis-collab/src/collab/controller/relay"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	viewplugin "github.com/knowtis/knowtis-collab/src/collab/entity/view-plugin"
	peertransport "github.com/knowtis/knowtis-collab/src/collab/gateway/peer-transport"
	"github.com/knowtis/knowtis-collab/src/collab/internal/awareness"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"github.com/knowtis/knowtis-collab/src/collab/repository/session"
	"go.uber.org/zap"
)

// Session is one editor view bound to a note.
type Session struct {
	noteID   string
	content  *crdt.Text
	provider *peertransport.Provider
	relay    relay.Controller
	sessions session.Repository
	methods  viewplugin.MethodLists
	logger   *zap.SugaredLogger
	onClose  func(*Session)

	stopHeartbeat func()

	mu           sync.Mutex
	closed       bool
	unsubscribes []func()
}

// NoteID returns the note this session edits.
func (s *Session) NoteID() string {
	return s.noteID
}

// Content returns the shared text of the note.
func (s *Session) Content() *crdt.Text {
	return s.content
}

// Provider returns the peer transport provider of the note.
func (s *Session) Provider() *peertransport.Provider {
	return s.provider
}

// SelectionChanged forwards a selection made in the view to every plugin.
func (s *Session) SelectionChanged(ctx context.Context, selection entity.CursorPosition) {
	if s.isClosed() {
		return
	}
	s.executePluginMethods(ctx, viewplugin.MethodSelectionChange, func(ctx context.Context, m *viewplugin.Methods) error {
		return m.OnSelectionChange(ctx, selection)
	})
}

// Collaborators returns the other peers editing the note that have a name, a color and a cursor.
func (s *Session) Collaborators() []entity.CollaborativeUser {
	a := s.provider.Awareness()
	return cursorsync.ActiveCollaborators(a.States(), a.ClientID())
}

// OnCollaboratorsChange calls fn with the collaborator list each time a peer's state is added, changed or removed.
// Handlers are dropped when the session closes.
func (s *Session) OnCollaboratorsChange(fn func(users []entity.CollaborativeUser)) (unsubscribe func()) {
	unsubscribe = s.provider.Awareness().OnChange(func(_ awareness.Change, _ any) {
		fn(s.Collaborators())
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		unsubscribe()
		return func() {}
	}
	s.unsubscribes = append(s.unsubscribes, unsubscribe)
	return unsubscribe
}

// ActiveUsers returns the users viewing the note in other tabs, as last reported over the cross-tab relay.
func (s *Session) ActiveUsers() []entity.CollaborativeUser {
	return s.relay.ActiveUsers(s.noteID)
}

// Close destroys the plugins, stops the presence heartbeat (announcing the leave) and clears the local cursor of the
// note. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribes := s.unsubscribes
	s.unsubscribes = nil
	s.mu.Unlock()

	s.executePluginMethods(ctx, viewplugin.MethodDestroy, func(ctx context.Context, m *viewplugin.Methods) error {
		return m.OnDestroy(ctx)
	})
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	s.stopHeartbeat()
	s.sessions.ClearPresenceForNote(s.noteID)
	if s.onClose != nil {
		s.onClose(s)
	}
	s.logger.Info("editor session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// executePluginMethods runs call for every plugin registered for method, in priority order. A plugin error is logged
// and does not stop the others.
func (s *Session) executePluginMethods(ctx context.Context, method string, call func(ctx context.Context, m *viewplugin.Methods) error) {
	for _, m := range s.methods[method] {
		if err := call(ctx, m); err != nil {
			s.logger.Errorf(_errPluginReturnedError, m.PluginNameKey, err)
		}
	}
}

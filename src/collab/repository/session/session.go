//go:generate mockgen -source=session.go -destination=sessionmock/session_mock.go -package=sessionmock

package session

import (
	"context"
	"sort"
	"sync"

	"github.com/knowtis/knowtis-collab/src/collab/controller/relay"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	peertransport "github.com/knowtis/knowtis-collab/src/collab/gateway/peer-transport"
	"github.com/knowtis/knowtis-collab/src/collab/internal/core"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
	"github.com/knowtis/knowtis-collab/src/collab/internal/persistence"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ContentFragment is the name of the fragment holding a note's rich text.
const ContentFragment = "content"

// Repository owns the per-note collaboration resources of this process.
type Repository interface {
	// GetDocument returns the replicated document of a note, creating it and its persistence handle on first use.
	GetDocument(ctx context.Context, noteID string) *crdt.Doc
	// GetContentHandle returns the content fragment of a note's document.
	GetContentHandle(ctx context.Context, noteID string) *crdt.Text
	// GetProvider returns the peer transport provider of a note, creating and connecting it on first use.
	GetProvider(ctx context.Context, noteID string) *peertransport.Provider
	// LookupDocument returns the document of a note without creating it.
	LookupDocument(noteID string) (*crdt.Doc, bool)
	// ClearPresenceForNote clears the local cursor in a note's awareness registry, if a provider exists.
	ClearPresenceForNote(noteID string)
	// NoteIDs returns every note with a materialized document.
	NoteIDs() []string
	// SessionCount returns the number of notes with a materialized document.
	SessionCount() int
	// Unload announces that this process is going away: a leave for every note and removal of the local
	// awareness entry from every provider. Best effort.
	Unload(ctx context.Context)
	// Teardown destroys every provider, document and persistence handle, in that order. It is idempotent.
	Teardown() error
}

// Params are inbound parameters to initialize the repository.
type Params struct {
	fx.In

	Relay       relay.Controller
	Transport   *peertransport.Transport
	Persistence *persistence.Store
	Collab      core.CollabConfig
	User        entity.CollaborativeUser
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
	Lifecycle   fx.Lifecycle
}

type noteSession struct {
	doc         *crdt.Doc
	persistence *persistence.Handle
	provider    *peertransport.Provider
	unsubscribe func()
}

type repository struct {
	relay       relay.Controller
	transport   *peertransport.Transport
	persistence *persistence.Store
	cfg         core.CollabConfig
	user        entity.CollaborativeUser
	logger      *zap.SugaredLogger
	stats       tally.Scope

	mu       sync.Mutex
	sessions map[string]*noteSession
	torndown bool
}

// New returns a repository of collaboration sessions keyed by note id and registers it as the relay's document lookup.
// On stop it unloads, then tears every session down.
func New(p Params) (Repository, error) {
	r := &repository{
		relay:       p.Relay,
		transport:   p.Transport,
		persistence: p.Persistence,
		cfg:         p.Collab,
		user:        p.User,
		logger:      p.Logger.With("component", "sessions"),
		stats:       p.Stats.SubScope("sessions"),
		sessions:    make(map[string]*noteSession),
	}
	if err := p.Relay.RegisterDocumentLookup(r); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			r.Unload(ctx)
			return r.Teardown()
		},
	})
	return r, nil
}

func (r *repository) GetDocument(ctx context.Context, noteID string) *crdt.Doc {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionLocked(ctx, noteID).doc
}

func (r *repository) GetContentHandle(ctx context.Context, noteID string) *crdt.Text {
	return r.GetDocument(ctx, noteID).Fragment(ContentFragment)
}

func (r *repository) GetProvider(ctx context.Context, noteID string) *peertransport.Provider {
	r.mu.Lock()
	s := r.sessionLocked(ctx, noteID)
	if s.provider != nil {
		r.mu.Unlock()
		return s.provider
	}
	provider := r.transport.NewProvider(r.cfg.RoomName(noteID), s.doc)
	provider.Awareness().SetLocalUser(r.user.Info())
	s.provider = provider
	r.mu.Unlock()

	if err := provider.Connect(ctx); err != nil {
		r.logger.Warnf("connecting provider for note %q: %v", noteID, err)
	}
	return provider
}

func (r *repository) LookupDocument(noteID string) (*crdt.Doc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[noteID]
	if !ok {
		return nil, false
	}
	return s.doc, true
}

func (r *repository) ClearPresenceForNote(noteID string) {
	r.mu.Lock()
	s, ok := r.sessions[noteID]
	r.mu.Unlock()
	if !ok || s.provider == nil {
		return
	}
	s.provider.Awareness().SetLocalCursor(nil)
}

func (r *repository) NoteIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *repository) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *repository) Unload(ctx context.Context) {
	for _, noteID := range r.NoteIDs() {
		if err := r.relay.BroadcastLeave(ctx, noteID); err != nil && !errors.IsChannelClosed(err) {
			r.logger.Warnf("broadcasting leave for note %q: %v", noteID, err)
		}
	}

	r.mu.Lock()
	providers := make([]*peertransport.Provider, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.provider != nil {
			providers = append(providers, s.provider)
		}
	}
	r.mu.Unlock()

	for _, p := range providers {
		p.Awareness().SetLocalState(nil)
	}
}

func (r *repository) Teardown() error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*noteSession)
	r.torndown = true
	r.stats.Gauge("active").Update(0)
	r.mu.Unlock()

	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var err error
	for _, id := range ids {
		s := sessions[id]
		if s.provider != nil {
			err = multierr.Append(err, s.provider.Destroy())
		}
		s.unsubscribe()
		s.doc.Destroy()
		if s.persistence != nil {
			err = multierr.Append(err, s.persistence.Destroy())
		}
	}
	if err != nil {
		r.logger.Errorf("tearing down sessions: %v", err)
	}
	return err
}

// sessionLocked returns the session of a note, creating its document on first use.
func (r *repository) sessionLocked(ctx context.Context, noteID string) *noteSession {
	if s, ok := r.sessions[noteID]; ok {
		return s
	}
	if r.torndown {
		r.logger.Warnf("materializing note %q after teardown", noteID)
	}

	s := &noteSession{doc: crdt.NewDoc()}
	handle, err := r.persistence.Open(ctx, noteID, s.doc)
	if err != nil {
		r.stats.Counter("persistence_errors").Inc(1)
		r.logger.Errorf("opening persistence for note %q, continuing in memory: %v", noteID, err)
	} else {
		s.persistence = handle
	}
	s.unsubscribe = s.doc.OnUpdate(r.publish(noteID))

	r.sessions[noteID] = s
	r.stats.Gauge("active").Update(float64(len(r.sessions)))
	return s
}

func (r *repository) publish(noteID string) crdt.UpdateHandler {
	origin := r.relay.Origin()
	return func(update []byte, from any) {
		if from == origin {
			return
		}
		if err := r.relay.PublishUpdate(context.Background(), noteID, update); err != nil && !errors.IsChannelClosed(err) {
			r.logger.Warnf("publishing update for note %q: %v", noteID, err)
		}
	}
}

//go:generate mockgen -source=relay.go -destination=relaymock/relay_mock.go -package=relaymock

// Package relay fans document updates and presence out to the other tabs of one profile.
package relay

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/internal/broadcast"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/core"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
	"github.com/knowtis/knowtis-collab/src/collab/mapper"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _nameKey = "relay"

// DocumentLookup finds the already materialized document of a note. It never creates one.
type DocumentLookup interface {
	LookupDocument(noteID string) (*crdt.Doc, bool)
}

// ActiveUsersHandler observes the collaborator list of a note after it changed.
type ActiveUsersHandler func(noteID string, users []entity.CollaborativeUser)

// Controller is the cross-tab relay.
type Controller interface {
	// Start begins the periodic staleness sweep.
	Start(ctx context.Context) error

	// BroadcastPresence announces the local user on a note.
	BroadcastPresence(ctx context.Context, noteID string) error

	// BroadcastLeave announces that the local user left a note.
	BroadcastLeave(ctx context.Context, noteID string) error

	// PublishUpdate sends an encoded document update of a note to the other tabs.
	PublishUpdate(ctx context.Context, noteID string, update []byte) error

	// Origin is the origin of every update the relay applies to a document.
	Origin() any

	// ActiveUsers returns the other tabs currently present on a note.
	ActiveUsers(noteID string) []entity.CollaborativeUser

	// OnActiveUsersChange registers fn for every change of a collaborator list.
	OnActiveUsersChange(fn ActiveUsersHandler) (unsubscribe func())

	// StartHeartbeat broadcasts presence for a note now and every presence interval.
	// stop cancels the heartbeat and broadcasts a leave.
	StartHeartbeat(noteID string) (stop func())

	// Sweep drops presence records older than the staleness window and returns the notes whose list shrank.
	Sweep() []string

	// RegisterDocumentLookup sets where inbound updates are applied. It can only be set once.
	RegisterDocumentLookup(lookup DocumentLookup) error

	// Close stops every timer and closes the channel. It is safe to call more than once.
	Close() error
}

// Params are inbound parameters to initialize the relay.
type Params struct {
	fx.In

	Opener    broadcast.Opener
	Collab    core.CollabConfig
	User      entity.CollaborativeUser
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Lifecycle fx.Lifecycle
}

type relayOrigin struct {
	channel string
}

type controller struct {
	cfg     core.CollabConfig
	user    entity.CollaborativeUser
	clk     clock.Clock
	logger  *zap.SugaredLogger
	stats   tally.Scope
	channel broadcast.Channel
	origin  *relayOrigin

	mu          sync.Mutex
	lookup      DocumentLookup
	users       map[string][]entity.CollaborativeUser
	handlers    map[int]ActiveUsersHandler
	nextHandler int
	started     bool

	unsubscribe func()
	stop        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// New opens the relay channel and registers the sweep with the lifecycle.
func New(p Params) (Controller, error) {
	ch, err := p.Opener.Open(context.Background(), p.Collab.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("opening relay channel %q: %w", p.Collab.ChannelName, err)
	}

	c := &controller{
		cfg:      p.Collab,
		user:     p.User,
		clk:      p.Clock,
		logger:   p.Logger.With("component", _nameKey, "channel", p.Collab.ChannelName),
		stats:    p.Stats.SubScope(_nameKey),
		channel:  ch,
		origin:   &relayOrigin{channel: p.Collab.ChannelName},
		users:    make(map[string][]entity.CollaborativeUser),
		handlers: make(map[int]ActiveUsersHandler),
		stop:     make(chan struct{}),
	}
	c.unsubscribe = ch.Subscribe(c.receive)

	p.Lifecycle.Append(fx.Hook{
		OnStart: c.Start,
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

func (c *controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	select {
	case <-c.stop:
		return errors.ChannelClosedError
	default:
	}
	c.started = true

	ticker := c.clk.NewTicker(c.cfg.PresenceInterval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C():
				c.Sweep()
			}
		}
	}()
	return nil
}

func (c *controller) Origin() any {
	return c.origin
}

func (c *controller) BroadcastPresence(ctx context.Context, noteID string) error {
	user := c.user
	return c.post(ctx, &entity.BroadcastMessage{Type: entity.MessageTypePresence, NoteID: noteID, User: &user})
}

func (c *controller) BroadcastLeave(ctx context.Context, noteID string) error {
	user := c.user
	return c.post(ctx, &entity.BroadcastMessage{Type: entity.MessageTypeLeave, NoteID: noteID, User: &user})
}

func (c *controller) PublishUpdate(ctx context.Context, noteID string, update []byte) error {
	return c.post(ctx, &entity.BroadcastMessage{Type: entity.MessageTypeUpdate, NoteID: noteID, Updates: update})
}

func (c *controller) post(ctx context.Context, msg *entity.BroadcastMessage) error {
	data, err := mapper.EncodeBroadcastMessage(msg)
	if err != nil {
		return err
	}
	if err := c.channel.Post(ctx, data); err != nil {
		return err
	}
	c.stats.Tagged(map[string]string{"type": string(msg.Type)}).Counter("sent").Inc(1)
	return nil
}

func (c *controller) ActiveUsers(noteID string) []entity.CollaborativeUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.CollaborativeUser(nil), c.users[noteID]...)
}

func (c *controller) OnActiveUsersChange(fn ActiveUsersHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, id)
	}
}

func (c *controller) StartHeartbeat(noteID string) func() {
	ctx := context.Background()
	if err := c.BroadcastPresence(ctx, noteID); err != nil && !errors.IsChannelClosed(err) {
		c.logger.Warnf("broadcasting presence for note %q: %v", noteID, err)
	}

	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		return func() {}
	default:
	}
	c.wg.Add(1)
	c.mu.Unlock()

	ticker := c.clk.NewTicker(c.cfg.PresenceInterval)
	done := make(chan struct{})
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-c.stop:
				return
			case <-ticker.C():
				if err := c.BroadcastPresence(ctx, noteID); err != nil && !errors.IsChannelClosed(err) {
					c.logger.Warnf("broadcasting presence for note %q: %v", noteID, err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			if err := c.BroadcastLeave(ctx, noteID); err != nil && !errors.IsChannelClosed(err) {
				c.logger.Warnf("broadcasting leave for note %q: %v", noteID, err)
			}
		})
	}
}

func (c *controller) Sweep() []string {
	now := c.clk.Now()
	c.mu.Lock()
	var changed []string
	for noteID, users := range c.users {
		fresh := make([]entity.CollaborativeUser, 0, len(users))
		for _, u := range users {
			if now.Sub(u.LastSeen) <= c.cfg.StaleUserTimeout {
				fresh = append(fresh, u)
			}
		}
		if len(fresh) == len(users) {
			continue
		}
		changed = append(changed, noteID)
		if len(fresh) == 0 {
			delete(c.users, noteID)
		} else {
			c.users[noteID] = fresh
		}
	}
	sort.Strings(changed)
	c.mu.Unlock()

	if len(changed) > 0 {
		c.stats.Counter("stale_sweeps").Inc(1)
	}
	for _, noteID := range changed {
		c.notify(noteID)
	}
	return changed
}

func (c *controller) RegisterDocumentLookup(lookup DocumentLookup) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookup != nil {
		return errors.New("cannot register a duplicate document lookup")
	}
	c.lookup = lookup
	return nil
}

func (c *controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.stop)
		c.mu.Unlock()
		c.wg.Wait()
		c.unsubscribe()
		c.closeErr = c.channel.Close()
	})
	return c.closeErr
}

func (c *controller) receive(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.Counter("handler_panics").Inc(1)
			c.logger.Errorf("recovered from panic while handling relay message: %v", r)
		}
	}()

	msg, err := mapper.DecodeBroadcastMessage(data)
	if err != nil {
		c.stats.Counter("dropped").Inc(1)
		c.logger.Warnf("dropping relay message: %v", err)
		return
	}
	c.stats.Tagged(map[string]string{"type": string(msg.Type)}).Counter("received").Inc(1)

	switch msg.Type {
	case entity.MessageTypePresence:
		c.upsert(msg.NoteID, *msg.User)
	case entity.MessageTypeLeave:
		c.remove(msg.NoteID, msg.User.ID)
	case entity.MessageTypeUpdate:
		c.applyUpdate(msg.NoteID, msg.Updates)
	case entity.MessageTypeAwareness:
		c.logger.Debugf("ignoring reserved %q message for note %q", msg.Type, msg.NoteID)
	}
}

func (c *controller) upsert(noteID string, user entity.CollaborativeUser) {
	if user.ID == c.user.ID {
		return
	}
	user.LastSeen = c.clk.Now()

	c.mu.Lock()
	users := c.users[noteID]
	replaced := false
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		c.users[noteID] = append(users, user)
	}
	c.mu.Unlock()

	c.notify(noteID)
}

func (c *controller) remove(noteID, userID string) {
	c.mu.Lock()
	users := c.users[noteID]
	fresh := make([]entity.CollaborativeUser, 0, len(users))
	for _, u := range users {
		if u.ID != userID {
			fresh = append(fresh, u)
		}
	}
	if len(fresh) == len(users) {
		c.mu.Unlock()
		return
	}
	if len(fresh) == 0 {
		delete(c.users, noteID)
	} else {
		c.users[noteID] = fresh
	}
	c.mu.Unlock()

	c.notify(noteID)
}

func (c *controller) applyUpdate(noteID string, update []byte) {
	c.mu.Lock()
	lookup := c.lookup
	c.mu.Unlock()

	if lookup == nil {
		c.logger.Warnf("no document lookup registered, dropping update for note %q", noteID)
		return
	}
	doc, ok := lookup.LookupDocument(noteID)
	if !ok {
		c.stats.Counter("unknown_note").Inc(1)
		c.logger.Warnw("dropping update for a note without a local session", zap.Error(&errors.NoteNotFoundError{NoteID: noteID}))
		return
	}
	if err := doc.ApplyUpdate(update, c.origin); err != nil {
		c.stats.Counter("apply_errors").Inc(1)
		c.logger.Warnf("applying update for note %q: %v", noteID, err)
	}
}

func (c *controller) notify(noteID string) {
	c.mu.Lock()
	users := append([]entity.CollaborativeUser(nil), c.users[noteID]...)
	ids := make([]int, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]ActiveUsersHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		c.callHandler(fn, noteID, users)
	}
}

// callHandler runs one subscriber, so that a panicking subscriber neither stops the sweep nor hides the change from
// the others.
func (c *controller) callHandler(fn ActiveUsersHandler, noteID string, users []entity.CollaborativeUser) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.Counter("handler_panics").Inc(1)
			c.logger.Errorf("recovered from panic in active users handler for note %q: %v", noteID, r)
		}
	}()
	fn(noteID, users)
}

package peertransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/internal/awareness"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"go.uber.org/zap"
)

// Provider keeps one document and its awareness registry in sync with the other members of a room.
//
// Document updates are exchanged as encoded CRDT updates, so delivery order and duplicates do not matter.
// The local awareness entry is renewed every half outdatedTimeout, and remote entries that were not renewed
// within outdatedTimeout are dropped.
type Provider struct {
	room            string
	doc             *crdt.Doc
	awareness       *awareness.Awareness
	dialer          Dialer
	clk             clock.Clock
	logger          *zap.SugaredLogger
	outdatedTimeout time.Duration

	mu            sync.Mutex
	conn          Conn
	unsubscribers []func()
	destroyed     bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func newProvider(room string, doc *crdt.Doc, dialer Dialer, clk clock.Clock, logger *zap.SugaredLogger, outdatedTimeout time.Duration) *Provider {
	return &Provider{
		room:            room,
		doc:             doc,
		awareness:       awareness.New(doc.ClientID(), clk),
		dialer:          dialer,
		clk:             clk,
		logger:          logger.With("room", room),
		outdatedTimeout: outdatedTimeout,
		stop:            make(chan struct{}),
	}
}

// Room returns the room name.
func (p *Provider) Room() string {
	return p.room
}

// Doc returns the synchronized document.
func (p *Provider) Doc() *crdt.Doc {
	return p.doc
}

// Awareness returns the awareness registry of the room.
func (p *Provider) Awareness() *awareness.Awareness {
	return p.awareness
}

// Connected reports whether Connect succeeded and the provider was not destroyed since.
func (p *Provider) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil && !p.destroyed
}

// Connect joins the room and starts exchanging updates. It announces the local state and asks the other
// members for theirs. Calling Connect on a connected provider is a no-op.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return fmt.Errorf("provider for room %q is destroyed", p.room)
	}
	if p.conn != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	conn, err := p.dialer.Dial(ctx, p.room)
	if err != nil {
		return fmt.Errorf("joining room %q: %w", p.room, err)
	}

	p.mu.Lock()
	if p.destroyed || p.conn != nil {
		p.mu.Unlock()
		return conn.Close()
	}
	p.conn = conn
	p.unsubscribers = append(p.unsubscribers,
		conn.Subscribe(p.receive),
		p.doc.OnUpdate(p.onDocUpdate),
		p.awareness.OnUpdate(p.onAwarenessUpdate),
	)
	p.mu.Unlock()

	if r, ok := conn.(Reconnector); ok {
		r.OnReconnect(p.sync)
	}
	p.sync()

	ticker := p.clk.NewTicker(p.outdatedTimeout / 10)
	p.wg.Add(1)
	go p.renew(ticker)
	return nil
}

// Destroy leaves the room. Peers are told the local awareness entry is gone before the connection closes.
func (p *Provider) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		p.awareness.Destroy()
		return nil
	}

	close(p.stop)
	p.wg.Wait()

	p.awareness.Destroy()

	p.mu.Lock()
	unsubscribers := p.unsubscribers
	p.unsubscribers = nil
	p.mu.Unlock()
	for _, unsubscribe := range unsubscribers {
		unsubscribe()
	}
	return conn.Close()
}

func (p *Provider) sync() {
	p.send(model.PeerMessage{Type: model.PeerMessageSyncRequest})
	p.send(model.PeerMessage{Type: model.PeerMessageUpdate, Update: p.doc.EncodeStateAsUpdate()})
	p.sendLocalAwareness()
}

func (p *Provider) sendLocalAwareness() {
	p.send(model.PeerMessage{
		Type:      model.PeerMessageAwareness,
		Awareness: p.awareness.Update([]uint64{p.awareness.ClientID()}),
	})
}

func (p *Provider) onDocUpdate(update []byte, origin any) {
	if origin == p {
		return
	}
	p.send(model.PeerMessage{Type: model.PeerMessageUpdate, Update: update})
}

func (p *Provider) onAwarenessUpdate(change awareness.Change, origin any) {
	if origin != nil {
		return
	}
	p.send(model.PeerMessage{
		Type:      model.PeerMessageAwareness,
		Awareness: p.awareness.Update(change.All()),
	})
}

func (p *Provider) send(msg model.PeerMessage) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return
	}

	msg.From = p.doc.ClientID()
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Errorf("encoding %s message: %v", msg.Type, err)
		return
	}
	if err := conn.Send(context.Background(), data); err != nil {
		p.logger.Debugf("sending %s message: %v", msg.Type, err)
	}
}

func (p *Provider) receive(data []byte) {
	var msg model.PeerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.logger.Warnf("dropping undecodable peer message: %v", err)
		return
	}
	if msg.From == p.doc.ClientID() {
		return
	}

	switch msg.Type {
	case model.PeerMessageSyncRequest:
		p.send(model.PeerMessage{Type: model.PeerMessageUpdate, Update: p.doc.EncodeStateAsUpdate()})
		p.sendLocalAwareness()
	case model.PeerMessageUpdate:
		if err := p.doc.ApplyUpdate(msg.Update, p); err != nil {
			p.logger.Warnf("applying update from client %d: %v", msg.From, err)
		}
	case model.PeerMessageAwareness:
		if msg.Awareness != nil {
			p.awareness.Apply(msg.Awareness, p)
		}
	default:
		p.logger.Debugf("ignoring peer message of type %q", msg.Type)
	}
}

func (p *Provider) renew(ticker clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()
	renewAfter := p.outdatedTimeout / 2

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C():
			if state := p.awareness.LocalState(); state != nil && p.clk.Now().Sub(p.awareness.LocalUpdatedAt()) >= renewAfter {
				p.awareness.SetLocalState(state)
			}
			if removed := p.awareness.RemoveOutdated(p.outdatedTimeout); len(removed) > 0 {
				p.logger.Debugf("removed %d outdated awareness entries", len(removed))
			}
		}
	}
}

// Package crdt implements a replicated text document based on a replicated growable array.
//
// Every inserted character carries a unique (client, clock) id and the id of its left neighbour at insertion time.
// Concurrent inserts after the same neighbour are ordered by descending id, which makes merges commutative and idempotent.
package crdt

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
)

// ID identifies one inserted character.
type ID struct {
	Client uint64
	Clock  uint64
}

// after reports whether id sorts before other among siblings of the same origin.
func (id ID) after(other ID) bool {
	if id.Clock != other.Clock {
		return id.Clock > other.Clock
	}
	return id.Client > other.Client
}

// UpdateHandler receives every update integrated into a document together with the origin that produced it.
type UpdateHandler func(update []byte, origin any)

// Option configures a Doc.
type Option func(*Doc)

// WithClientID fixes the client id instead of drawing a random one.
func WithClientID(id uint64) Option {
	return func(d *Doc) {
		d.clientID = id
	}
}

// Doc is a replicated document made of named text fragments.
// Update handlers are invoked in integration order and must not modify the document.
type Doc struct {
	// emitMu orders writers together with their update events.
	emitMu sync.Mutex
	mu     sync.Mutex

	clientID  uint64
	clock     uint64
	fragments map[string]*Text
	items     map[ID]*item
	pending   update
	handlers  map[int]UpdateHandler
	nextID    int
	destroyed bool
}

// NewDoc creates an empty document.
func NewDoc(opts ...Option) *Doc {
	d := &Doc{
		clientID:  uint64(rand.Uint32()),
		fragments: make(map[string]*Text),
		items:     make(map[ID]*item),
		handlers:  make(map[int]UpdateHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ClientID returns the id stamped on characters inserted locally.
func (d *Doc) ClientID() uint64 {
	return d.clientID
}

// Fragment returns the text fragment with the given name, creating it on first use.
func (d *Doc) Fragment(name string) *Text {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fragmentLocked(name)
}

func (d *Doc) fragmentLocked(name string) *Text {
	t, ok := d.fragments[name]
	if !ok {
		t = &Text{doc: d, name: name}
		d.fragments[name] = t
	}
	return t
}

// OnUpdate registers fn for every subsequent update and returns a function that removes it.
func (d *Doc) OnUpdate(fn UpdateHandler) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, id)
	}
}

// Transact runs fn with exclusive write access and emits the changes it made as one update tagged with origin.
// fn must only use the Transaction to read or modify the document.
func (d *Doc) Transact(origin any, fn func(tx *Transaction) error) error {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return errors.DocumentDestroyedError
	}
	tx := &Transaction{doc: d}
	err := fn(tx)
	handlers := d.handlersLocked()
	d.mu.Unlock()

	if !tx.changes.empty() {
		d.emit(handlers, encodeUpdate(tx.changes), origin)
	}
	return err
}

// ApplyUpdate integrates a remote update. Operations already known are ignored, and operations whose
// dependencies are missing are held back until those dependencies arrive.
func (d *Doc) ApplyUpdate(data []byte, origin any) error {
	u, err := decodeUpdate(data)
	if err != nil {
		return err
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return errors.DocumentDestroyedError
	}
	d.pending.inserts = append(d.pending.inserts, u.inserts...)
	d.pending.deletes = append(d.pending.deletes, u.deletes...)
	integrated := d.integratePendingLocked()
	handlers := d.handlersLocked()
	d.mu.Unlock()

	if !integrated.empty() {
		d.emit(handlers, encodeUpdate(integrated), origin)
	}
	return nil
}

// EncodeStateAsUpdate returns one update that reproduces the whole document, including held back operations.
func (d *Doc) EncodeStateAsUpdate() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.fragments))
	for name := range d.fragments {
		names = append(names, name)
	}
	sort.Strings(names)

	var u update
	for _, name := range names {
		for _, it := range d.fragments[name].items {
			u.inserts = append(u.inserts, it.insertOp(name))
			if it.deleted {
				u.deletes = append(u.deletes, deleteOp{target: it.id})
			}
		}
	}
	u.inserts = append(u.inserts, d.pending.inserts...)
	u.deletes = append(u.deletes, d.pending.deletes...)
	return encodeUpdate(u)
}

// Destroy drops every handler. Later writes fail with DocumentDestroyedError.
func (d *Doc) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
	d.handlers = make(map[int]UpdateHandler)
}

// Destroyed reports whether Destroy has been called.
func (d *Doc) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

func (d *Doc) handlersLocked() []UpdateHandler {
	ids := make([]int, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]UpdateHandler, 0, len(ids))
	for _, id := range ids {
		result = append(result, d.handlers[id])
	}
	return result
}

func (d *Doc) emit(handlers []UpdateHandler, data []byte, origin any) {
	for _, fn := range handlers {
		fn(data, origin)
	}
}

func (d *Doc) nextLocalID() ID {
	d.clock++
	return ID{Client: d.clientID, Clock: d.clock}
}

func (d *Doc) observe(id ID) {
	if id.Clock > d.clock {
		d.clock = id.Clock
	}
}

// integratePendingLocked integrates every pending operation whose dependencies are present, repeating until no
// progress is made, and returns the operations that changed the document.
func (d *Doc) integratePendingLocked() update {
	var integrated update
	for progress := true; progress; {
		progress = false

		inserts := d.pending.inserts[:0:0]
		for _, op := range d.pending.inserts {
			if _, known := d.items[op.id]; known {
				continue
			}
			t := d.fragmentLocked(op.fragment)
			if !t.integrate(op) {
				inserts = append(inserts, op)
				continue
			}
			d.observe(op.id)
			integrated.inserts = append(integrated.inserts, op)
			progress = true
		}
		d.pending.inserts = inserts

		deletes := d.pending.deletes[:0:0]
		for _, op := range d.pending.deletes {
			it, known := d.items[op.target]
			if !known {
				deletes = append(deletes, op)
				continue
			}
			if !it.deleted {
				it.deleted = true
				integrated.deletes = append(integrated.deletes, op)
				progress = true
			}
		}
		d.pending.deletes = deletes
	}
	return integrated
}

// Transaction is the write access handed to Transact callbacks.
type Transaction struct {
	doc     *Doc
	changes update
}

// Insert inserts s at the rune offset pos of t.
func (tx *Transaction) Insert(t *Text, pos int, s string) error {
	if err := tx.check(t); err != nil {
		return err
	}
	visible := t.lenLocked()
	if pos < 0 || pos > visible {
		return fmt.Errorf("insert position %d is outside [0,%d]", pos, visible)
	}

	var origin ID
	hasOrigin := false
	if pos > 0 {
		origin, hasOrigin = t.visibleAt(pos-1).id, true
	}
	for _, r := range s {
		op := insertOp{
			id:        tx.doc.nextLocalID(),
			fragment:  t.name,
			origin:    origin,
			hasOrigin: hasOrigin,
			content:   r,
		}
		t.integrate(op)
		tx.changes.inserts = append(tx.changes.inserts, op)
		origin, hasOrigin = op.id, true
	}
	return nil
}

// Delete removes n runes of t starting at pos.
func (tx *Transaction) Delete(t *Text, pos, n int) error {
	if err := tx.check(t); err != nil {
		return err
	}
	visible := t.lenLocked()
	if pos < 0 || n < 0 || pos+n > visible {
		return fmt.Errorf("delete range [%d,%d) is outside [0,%d]", pos, pos+n, visible)
	}
	targets := make([]*item, 0, n)
	for i := 0; i < n; i++ {
		targets = append(targets, t.visibleAt(pos+i))
	}
	for _, it := range targets {
		it.deleted = true
		tx.changes.deletes = append(tx.changes.deletes, deleteOp{target: it.id})
	}
	return nil
}

// String returns the visible content of t.
func (tx *Transaction) String(t *Text) string {
	return t.stringLocked()
}

// Len returns the number of visible runes in t.
func (tx *Transaction) Len(t *Text) int {
	return t.lenLocked()
}

func (tx *Transaction) check(t *Text) error {
	if t.doc != tx.doc {
		return fmt.Errorf("fragment %q belongs to another document", t.name)
	}
	return nil
}

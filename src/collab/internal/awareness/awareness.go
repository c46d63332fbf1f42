// Package awareness keeps the ephemeral per-peer state (identity and cursor) of a transport room.
package awareness

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/mapper"
	"github.com/knowtis/knowtis-collab/src/collab/model"
)

// Change lists the client ids affected by one mutation of the registry.
type Change struct {
	Added   []uint64
	Updated []uint64
	Removed []uint64
}

// Empty reports whether no client was affected.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// All returns every affected client id.
func (c Change) All() []uint64 {
	result := make([]uint64, 0, len(c.Added)+len(c.Updated)+len(c.Removed))
	result = append(result, c.Added...)
	result = append(result, c.Updated...)
	return append(result, c.Removed...)
}

// Handler observes registry mutations. origin is the value passed by the writer, nil for local writes.
type Handler func(change Change, origin any)

type meta struct {
	clock       uint64
	lastUpdated time.Time
}

// Awareness is the peer-presence registry of one transport room.
//
// Update handlers run on every write, including renewals that leave a state unchanged. Change handlers run only
// when a state was added, removed or modified. Handlers run after the registry lock is released.
type Awareness struct {
	mu sync.Mutex

	clientID uint64
	clk      clock.Clock
	states   map[uint64]entity.AwarenessState
	order    []uint64
	meta     map[uint64]meta

	updateHandlers map[int]Handler
	changeHandlers map[int]Handler
	nextHandler    int
}

// New creates a registry whose local entry starts as an empty state.
func New(clientID uint64, clk clock.Clock) *Awareness {
	a := &Awareness{
		clientID:       clientID,
		clk:            clk,
		states:         make(map[uint64]entity.AwarenessState),
		meta:           make(map[uint64]meta),
		updateHandlers: make(map[int]Handler),
		changeHandlers: make(map[int]Handler),
	}
	a.states[clientID] = entity.AwarenessState{}
	a.order = append(a.order, clientID)
	a.meta[clientID] = meta{clock: 0, lastUpdated: clk.Now()}
	return a
}

// ClientID returns the id of the local entry.
func (a *Awareness) ClientID() uint64 {
	return a.clientID
}

// OnUpdate registers fn for every write and returns a function that removes it.
func (a *Awareness) OnUpdate(fn Handler) (unsubscribe func()) {
	return a.subscribe(a.updateHandlers, fn)
}

// OnChange registers fn for writes that modify the registry and returns a function that removes it.
func (a *Awareness) OnChange(fn Handler) (unsubscribe func()) {
	return a.subscribe(a.changeHandlers, fn)
}

func (a *Awareness) subscribe(handlers map[int]Handler, fn Handler) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextHandler
	a.nextHandler++
	handlers[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(handlers, id)
	}
}

// LocalState returns a copy of the local entry, or nil once it has been removed.
func (a *Awareness) LocalState() *entity.AwarenessState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.states[a.clientID]
	if !ok {
		return nil
	}
	c := copyState(s)
	return &c
}

// LocalUpdatedAt returns when the local entry was last written.
func (a *Awareness) LocalUpdatedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta[a.clientID].lastUpdated
}

// SetLocalState replaces the local entry. A nil state removes it.
func (a *Awareness) SetLocalState(state *entity.AwarenessState) {
	a.mu.Lock()
	prev, existed := a.states[a.clientID]
	m := a.meta[a.clientID]
	m.clock++
	m.lastUpdated = a.clk.Now()
	a.meta[a.clientID] = m

	var change Change
	var changed bool
	if state == nil {
		if existed {
			a.removeLocked(a.clientID)
			change.Removed = []uint64{a.clientID}
			changed = true
		}
	} else {
		a.putLocked(a.clientID, copyState(*state))
		switch {
		case !existed:
			change.Added = []uint64{a.clientID}
			changed = true
		default:
			change.Updated = []uint64{a.clientID}
			changed = !equalStates(prev, *state)
		}
	}
	update, changeHandlers := a.handlersLocked()
	a.mu.Unlock()

	a.notify(update, changeHandlers, change, changed, nil)
}

// SetLocalUser sets the user field of the local entry, keeping the cursor.
func (a *Awareness) SetLocalUser(user entity.UserInfo) {
	state := a.LocalState()
	if state == nil {
		state = &entity.AwarenessState{}
	}
	state.User = &user
	a.SetLocalState(state)
}

// SetLocalCursor sets the cursor field of the local entry. A nil cursor clears it.
func (a *Awareness) SetLocalCursor(cursor *entity.CursorPosition) {
	state := a.LocalState()
	if state == nil {
		state = &entity.AwarenessState{}
	}
	if cursor != nil {
		c := *cursor
		cursor = &c
	}
	state.Cursor = cursor
	a.SetLocalState(state)
}

// States returns every known entry, the local one included, in the order the registry first saw them.
func (a *Awareness) States() []entity.AwarenessEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]entity.AwarenessEntry, 0, len(a.order))
	for _, id := range a.order {
		result = append(result, entity.AwarenessEntry{ClientID: id, State: copyState(a.states[id])})
	}
	return result
}

// RemoteClientIDs returns the ids of every remote entry.
func (a *Awareness) RemoteClientIDs() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]uint64, 0, len(a.order))
	for _, id := range a.order {
		if id != a.clientID {
			result = append(result, id)
		}
	}
	return result
}

// RemoveStates drops remote entries. The local entry is never removed this way. Their clocks are kept, so only
// a newer update from the owner brings an entry back.
func (a *Awareness) RemoveStates(clientIDs []uint64, origin any) {
	a.mu.Lock()
	var change Change
	for _, id := range clientIDs {
		if id == a.clientID {
			continue
		}
		if _, ok := a.states[id]; !ok {
			continue
		}
		a.removeLocked(id)
		change.Removed = append(change.Removed, id)
	}
	update, changeHandlers := a.handlersLocked()
	a.mu.Unlock()

	if !change.Empty() {
		a.notify(update, changeHandlers, change, true, origin)
	}
}

// RemoveOutdated drops remote entries that were not renewed within timeout and returns their ids.
func (a *Awareness) RemoveOutdated(timeout time.Duration) []uint64 {
	now := a.clk.Now()
	a.mu.Lock()
	var outdated []uint64
	for _, id := range a.order {
		if id == a.clientID {
			continue
		}
		if now.Sub(a.meta[id].lastUpdated) >= timeout {
			outdated = append(outdated, id)
		}
	}
	a.mu.Unlock()

	if len(outdated) > 0 {
		a.RemoveStates(outdated, "timeout")
	}
	return outdated
}

// EncodeUpdate serializes the entries of the given clients. Clients without a state are encoded as removed.
func (a *Awareness) EncodeUpdate(clientIDs []uint64) ([]byte, error) {
	return json.Marshal(a.Update(clientIDs))
}

// Update returns the wire form of the entries of the given clients.
func (a *Awareness) Update(clientIDs []uint64) *model.AwarenessUpdate {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := &model.AwarenessUpdate{Clients: make([]model.AwarenessClient, 0, len(clientIDs))}
	for _, id := range clientIDs {
		c := model.AwarenessClient{ClientID: id, Clock: a.meta[id].clock}
		if s, ok := a.states[id]; ok {
			c.State = mapper.AwarenessStateToModel(&s)
		}
		u.Clients = append(u.Clients, c)
	}
	return u
}

// ApplyUpdate decodes and integrates an update produced by EncodeUpdate on another peer.
func (a *Awareness) ApplyUpdate(data []byte, origin any) error {
	var u model.AwarenessUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("decoding awareness update: %w", err)
	}
	a.Apply(&u, origin)
	return nil
}

// Apply integrates a remote update. Entries for the local client are ignored, so only this peer writes its own entry.
// A remote entry is accepted when its clock is newer, or equal with a removal of a present state.
func (a *Awareness) Apply(u *model.AwarenessUpdate, origin any) {
	now := a.clk.Now()
	a.mu.Lock()
	var change Change
	var updated []uint64
	for _, c := range u.Clients {
		if c.ClientID == a.clientID {
			continue
		}
		m, seen := a.meta[c.ClientID]
		prev, present := a.states[c.ClientID]
		if seen && !(m.clock < c.Clock || (m.clock == c.Clock && c.State == nil && present)) {
			continue
		}
		a.meta[c.ClientID] = meta{clock: c.Clock, lastUpdated: now}

		if c.State == nil {
			if present {
				a.removeLocked(c.ClientID)
				change.Removed = append(change.Removed, c.ClientID)
			}
			continue
		}
		state := *mapper.ModelToAwarenessState(c.State)
		a.putLocked(c.ClientID, state)
		switch {
		case !present:
			change.Added = append(change.Added, c.ClientID)
		case !equalStates(prev, state):
			change.Updated = append(change.Updated, c.ClientID)
		default:
			updated = append(updated, c.ClientID)
		}
	}
	update, changeHandlers := a.handlersLocked()
	a.mu.Unlock()

	if change.Empty() && len(updated) == 0 {
		return
	}
	for _, fn := range update {
		fn(Change{Added: change.Added, Updated: append(append([]uint64(nil), change.Updated...), updated...), Removed: change.Removed}, origin)
	}
	if !change.Empty() {
		for _, fn := range changeHandlers {
			fn(change, origin)
		}
	}
}

// Destroy removes the local entry, notifying handlers one last time, then drops every handler.
func (a *Awareness) Destroy() {
	a.SetLocalState(nil)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updateHandlers = make(map[int]Handler)
	a.changeHandlers = make(map[int]Handler)
}

func (a *Awareness) putLocked(id uint64, state entity.AwarenessState) {
	if _, ok := a.states[id]; !ok {
		a.order = append(a.order, id)
	}
	a.states[id] = state
}

func (a *Awareness) removeLocked(id uint64) {
	delete(a.states, id)
	for i, o := range a.order {
		if o == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Awareness) handlersLocked() (update, change []Handler) {
	return sortedHandlers(a.updateHandlers), sortedHandlers(a.changeHandlers)
}

func (a *Awareness) notify(update, change []Handler, c Change, changed bool, origin any) {
	if c.Empty() {
		return
	}
	for _, fn := range update {
		fn(c, origin)
	}
	if changed {
		for _, fn := range change {
			fn(c, origin)
		}
	}
}

func sortedHandlers(handlers map[int]Handler) []Handler {
	ids := make([]int, 0, len(handlers))
	for id := range handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	result := make([]Handler, 0, len(ids))
	for _, id := range ids {
		result = append(result, handlers[id])
	}
	return result
}

func copyState(s entity.AwarenessState) entity.AwarenessState {
	c := entity.AwarenessState{}
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	if s.Cursor != nil {
		cur := *s.Cursor
		c.Cursor = &cur
	}
	return c
}

func equalStates(a, b entity.AwarenessState) bool {
	if (a.User == nil) != (b.User == nil) || (a.Cursor == nil) != (b.Cursor == nil) {
		return false
	}
	if a.User != nil && *a.User != *b.User {
		return false
	}
	if a.Cursor != nil && *a.Cursor != *b.Cursor {
		return false
	}
	return true
}

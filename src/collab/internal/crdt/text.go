package crdt

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type item struct {
	id        ID
	origin    ID
	hasOrigin bool
	content   rune
	deleted   bool
}

func (it *item) insertOp(fragment string) insertOp {
	return insertOp{
		id:        it.id,
		fragment:  fragment,
		origin:    it.origin,
		hasOrigin: it.hasOrigin,
		content:   it.content,
	}
}

// Text is a named fragment of a Doc holding a sequence of characters.
type Text struct {
	doc   *Doc
	name  string
	items []*item
}

// Name returns the fragment name.
func (t *Text) Name() string {
	return t.name
}

// Insert inserts s at rune offset pos as a local change.
func (t *Text) Insert(pos int, s string) error {
	return t.doc.Transact(nil, func(tx *Transaction) error {
		return tx.Insert(t, pos, s)
	})
}

// Delete removes n runes starting at pos as a local change.
func (t *Text) Delete(pos, n int) error {
	return t.doc.Transact(nil, func(tx *Transaction) error {
		return tx.Delete(t, pos, n)
	})
}

// SetText replaces the content with s using the smallest set of inserts and deletes found by a character diff.
func (t *Text) SetText(s string) error {
	return t.doc.Transact(nil, func(tx *Transaction) error {
		return tx.SetText(t, s)
	})
}

// String returns the visible content.
func (t *Text) String() string {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.stringLocked()
}

// Len returns the number of visible runes.
func (t *Text) Len() int {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.lenLocked()
}

// SetText rewrites t to s inside the transaction.
func (tx *Transaction) SetText(t *Text, s string) error {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(t.stringLocked(), s, false)

	pos := 0
	for _, diff := range diffs {
		n := len([]rune(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			pos += n
		case diffmatchpatch.DiffDelete:
			if err := tx.Delete(t, pos, n); err != nil {
				return err
			}
		case diffmatchpatch.DiffInsert:
			if err := tx.Insert(t, pos, diff.Text); err != nil {
				return err
			}
			pos += n
		}
	}
	return nil
}

func (t *Text) stringLocked() string {
	var sb strings.Builder
	for _, it := range t.items {
		if !it.deleted {
			sb.WriteRune(it.content)
		}
	}
	return sb.String()
}

func (t *Text) lenLocked() int {
	n := 0
	for _, it := range t.items {
		if !it.deleted {
			n++
		}
	}
	return n
}

// visibleAt returns the item holding the visible rune at pos. pos must be in range.
func (t *Text) visibleAt(pos int) *item {
	for _, it := range t.items {
		if it.deleted {
			continue
		}
		if pos == 0 {
			return it
		}
		pos--
	}
	return nil
}

func (t *Text) indexOf(id ID) int {
	for i, it := range t.items {
		if it.id == id {
			return i
		}
	}
	return -1
}

// integrate places op after its origin, skipping siblings with a greater id.
// It returns false when the origin has not been integrated yet.
func (t *Text) integrate(op insertOp) bool {
	idx := -1
	if op.hasOrigin {
		if idx = t.indexOf(op.origin); idx < 0 {
			return false
		}
	}
	i := idx + 1
	for i < len(t.items) && t.items[i].id.after(op.id) {
		i++
	}

	it := &item{
		id:        op.id,
		origin:    op.origin,
		hasOrigin: op.hasOrigin,
		content:   op.content,
	}
	t.items = append(t.items, nil)
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = it
	t.doc.items[it.id] = it
	return true
}

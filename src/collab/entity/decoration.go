package entity

// DecorationKind distinguishes the markers drawn for a remote peer.
type DecorationKind int

const (
	// DecorationCaret is a widget placed at a single position.
	DecorationCaret DecorationKind = iota
	// DecorationRange highlights the span between From and To.
	DecorationRange
)

const (
	// CaretClass is the class of a remote caret widget.
	CaretClass = "collaboration-carets__caret"
	// CaretLabelClass is the class of the name label attached to a caret.
	CaretLabelClass = "collaboration-carets__label"
	// SelectionClass is the class of a remote selection highlight.
	SelectionClass = "collaboration-carets__selection"
)

// Decoration is a render-ready marker for a remote peer. Carets have From == To.
type Decoration struct {
	Kind  DecorationKind
	From  int
	To    int
	Key   string
	Label string
	Color string
	Class string
	Style string
	// Side biases a caret widget to the right of the position when positive.
	Side int
}

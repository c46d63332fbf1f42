package cursorsync

import (
	"fmt"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// _selectionAlpha is appended to a #rrggbb color to make selections translucent.
const _selectionAlpha = "33"

// DecorationBuilder turns remote cursor states into markers for the current document.
type DecorationBuilder struct {
	logger *zap.SugaredLogger
	stats  tally.Scope

	build func(entity.RemoteUserState, int) []entity.Decoration
}

// NewDecorationBuilder returns a builder that logs construction faults to logger.
func NewDecorationBuilder(logger *zap.SugaredLogger, stats tally.Scope) *DecorationBuilder {
	b := &DecorationBuilder{logger: logger, stats: stats}
	b.build = b.BuildUserDecorations
	return b
}

// ClampPosition bounds position to [0, maxSize]. A negative maxSize is a caller error and yields 0.
func (b *DecorationBuilder) ClampPosition(position, maxSize int) int {
	if maxSize < 0 {
		b.logger.Warnf("maxSize %d is negative, returning 0", maxSize)
		return 0
	}
	return min(max(0, position), maxSize)
}

// BuildUserDecorations returns the caret of a remote user at its clamped head and, when it selects a range,
// the highlight of that range. The color is used as given.
func (b *DecorationBuilder) BuildUserDecorations(state entity.RemoteUserState, documentSize int) []entity.Decoration {
	anchor := b.ClampPosition(state.Cursor.Anchor, documentSize)
	head := b.ClampPosition(state.Cursor.Head, documentSize)

	decorations := []entity.Decoration{{
		Kind:  entity.DecorationCaret,
		From:  head,
		To:    head,
		Key:   fmt.Sprintf("cursor-%d", state.ClientID),
		Label: state.User.Name,
		Color: state.User.Color,
		Class: entity.CaretClass,
		Style: "border-color: " + state.User.Color + ";",
		Side:  1,
	}}
	if anchor != head {
		decorations = append(decorations, entity.Decoration{
			Kind:  entity.DecorationRange,
			From:  min(anchor, head),
			To:    max(anchor, head),
			Key:   fmt.Sprintf("selection-%d", state.ClientID),
			Color: state.User.Color,
			Class: entity.SelectionClass,
			Style: "background-color: " + translucent(state.User.Color) + ";",
		})
	}
	return decorations
}

// BuildDecorations builds the markers of every remote user. A user whose markers cannot be built is logged
// and skipped.
func (b *DecorationBuilder) BuildDecorations(states []entity.RemoteUserState, documentSize int) []entity.Decoration {
	var result []entity.Decoration
	for _, state := range states {
		decorations, err := b.safeBuild(state, documentSize)
		if err != nil {
			b.stats.Counter("decoration_errors").Inc(1)
			b.logger.Errorw("failed to create user decorations", zap.Uint64("clientID", state.ClientID), zap.Error(err))
			continue
		}
		result = append(result, decorations...)
	}
	return result
}

func (b *DecorationBuilder) safeBuild(state entity.RemoteUserState, documentSize int) (_ []entity.Decoration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic building decorations: %v", r)
		}
	}()
	return b.build(state, documentSize), nil
}

// translucent expands #rgb to #rrggbb and appends the selection alpha. Colors that are not hex triplets are
// returned unchanged.
func translucent(color string) string {
	if !isHex(color) {
		return color
	}
	if len(color) == 4 {
		color = string([]byte{'#', color[1], color[1], color[2], color[2], color[3], color[3]})
	}
	return color + _selectionAlpha
}

func isHex(color string) bool {
	if (len(color) != 4 && len(color) != 7) || color[0] != '#' {
		return false
	}
	for _, c := range color[1:] {
		switch {
		case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		default:
			return false
		}
	}
	return true
}

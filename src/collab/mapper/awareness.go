package mapper

import (
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/model"
)

// AwarenessStateToModel maps an awareness state entity to its wire equivalent.
func AwarenessStateToModel(s *entity.AwarenessState) *model.AwarenessState {
	if s == nil {
		return nil
	}
	m := &model.AwarenessState{}
	if s.User != nil {
		m.User = &model.AwarenessUser{Name: s.User.Name, Color: s.User.Color}
	}
	if s.Cursor != nil {
		m.Cursor = &model.AwarenessCursor{Anchor: s.Cursor.Anchor, Head: s.Cursor.Head}
	}
	return m
}

// ModelToAwarenessState maps a wire awareness state to its entity equivalent.
func ModelToAwarenessState(m *model.AwarenessState) *entity.AwarenessState {
	if m == nil {
		return nil
	}
	s := &entity.AwarenessState{}
	if m.User != nil {
		s.User = &entity.UserInfo{Name: m.User.Name, Color: m.User.Color}
	}
	if m.Cursor != nil {
		s.Cursor = &entity.CursorPosition{Anchor: m.Cursor.Anchor, Head: m.Cursor.Head}
	}
	return s
}

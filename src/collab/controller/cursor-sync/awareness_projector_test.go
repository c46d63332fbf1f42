package cursorsync

import (
	"testing"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/factory"
	"github.com/stretchr/testify/assert"
)

func TestRemoteUserStates(t *testing.T) {
	userOnly := entity.AwarenessEntry{ClientID: 4, State: entity.AwarenessState{User: &entity.UserInfo{Name: "D", Color: "#444"}}}
	cursorOnly := entity.AwarenessEntry{ClientID: 5, State: entity.AwarenessState{Cursor: &entity.CursorPosition{Anchor: 1, Head: 1}}}

	tests := []struct {
		name   string
		states []entity.AwarenessEntry
		local  uint64
		want   []entity.RemoteUserState
	}{
		{
			name:  "empty",
			local: 1,
		},
		{
			name: "excludes self and incomplete states",
			states: []entity.AwarenessEntry{
				factory.AwarenessEntry(1, "Self", "#111", 0, 0),
				factory.AwarenessEntry(3, "C", "#333", 2, 5),
				userOnly,
				cursorOnly,
				factory.AwarenessEntry(2, "B", "#222", 7, 7),
			},
			local: 1,
			want: []entity.RemoteUserState{
				{ClientID: 3, User: entity.UserInfo{Name: "C", Color: "#333"}, Cursor: entity.CursorPosition{Anchor: 2, Head: 5}},
				{ClientID: 2, User: entity.UserInfo{Name: "B", Color: "#222"}, Cursor: entity.CursorPosition{Anchor: 7, Head: 7}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoteUserStates(tt.states, tt.local))
		})
	}
}

func TestActiveCollaborators(t *testing.T) {
	tests := []struct {
		name   string
		states []entity.AwarenessEntry
		local  uint64
		want   []entity.CollaborativeUser
	}{
		{
			name:  "empty",
			local: 1,
			want:  []entity.CollaborativeUser{},
		},
		{
			name: "requires name color and cursor",
			states: []entity.AwarenessEntry{
				factory.AwarenessEntry(1, "Self", "#111", 0, 0),
				factory.AwarenessEntry(2, "", "#222", 0, 0),
				factory.AwarenessEntry(3, "C", "", 0, 0),
				{ClientID: 4, State: entity.AwarenessState{User: &entity.UserInfo{Name: "D", Color: "#444"}}},
				factory.AwarenessEntry(18446744073709551615, "E", "#555", 3, 3),
			},
			local: 1,
			want: []entity.CollaborativeUser{
				{ID: "18446744073709551615", Name: "E", Color: "#555"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActiveCollaborators(tt.states, tt.local))
		})
	}
}

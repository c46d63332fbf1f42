package mapper

import (
	"testing"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"github.com/stretchr/testify/assert"
)

func TestAwarenessStateToModel(t *testing.T) {
	tests := []struct {
		name  string
		state *entity.AwarenessState
		want  *model.AwarenessState
	}{
		{
			name: "nil",
		},
		{
			name:  "empty",
			state: &entity.AwarenessState{},
			want:  &model.AwarenessState{},
		},
		{
			name: "user and cursor",
			state: &entity.AwarenessState{
				User:   &entity.UserInfo{Name: "Fox", Color: "#f87171"},
				Cursor: &entity.CursorPosition{Anchor: 2, Head: 5},
			},
			want: &model.AwarenessState{
				User:   &model.AwarenessUser{Name: "Fox", Color: "#f87171"},
				Cursor: &model.AwarenessCursor{Anchor: 2, Head: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AwarenessStateToModel(tt.state)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.state, ModelToAwarenessState(got))
		})
	}
}

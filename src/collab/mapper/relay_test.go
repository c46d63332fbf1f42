package mapper

import (
	"testing"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/factory"
	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollaborativeUserToModel(t *testing.T) {
	t.Run("without last seen", func(t *testing.T) {
		u := factory.User("Swift Fox", "#f87171")
		m := CollaborativeUserToModel(&u)
		assert.Equal(t, u.ID, m.ID)
		assert.Equal(t, u.Name, m.Name)
		assert.Equal(t, u.Color, m.Color)
		assert.Nil(t, m.LastSeen)
	})

	t.Run("with last seen", func(t *testing.T) {
		u := factory.User("Swift Fox", "#f87171")
		u.LastSeen = time.UnixMilli(1700000000123)
		m := CollaborativeUserToModel(&u)
		require.NotNil(t, m.LastSeen)
		assert.Equal(t, int64(1700000000123), *m.LastSeen)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, CollaborativeUserToModel(nil))
	})
}

func TestModelToCollaborativeUser(t *testing.T) {
	ms := int64(1700000000123)
	u := ModelToCollaborativeUser(&model.RelayUser{ID: "u1", Name: "Fox", Color: "#f87171", LastSeen: &ms})
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Fox", u.Name)
	assert.Equal(t, "#f87171", u.Color)
	assert.Equal(t, ms, u.LastSeen.UnixMilli())

	u = ModelToCollaborativeUser(&model.RelayUser{ID: "u2"})
	assert.True(t, u.LastSeen.IsZero())

	assert.Nil(t, ModelToCollaborativeUser(nil))
}

func TestModelToUpdate(t *testing.T) {
	tests := []struct {
		name    string
		values  []int
		want    []byte
		wantErr error
	}{
		{
			name:   "in range",
			values: []int{0, 1, 2, 255},
			want:   []byte{0, 1, 2, 255},
		},
		{
			name:   "empty",
			values: []int{},
			want:   []byte{},
		},
		{
			name:    "too large",
			values:  []int{1, 256},
			wantErr: &errors.UpdateByteError{Index: 1, Value: 256},
		},
		{
			name:    "negative",
			values:  []int{-1},
			wantErr: &errors.UpdateByteError{Index: 0, Value: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ModelToUpdate(tt.values)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	update := factory.Update(64)
	got, err := ModelToUpdate(UpdateToModel(update))
	require.NoError(t, err)
	assert.Equal(t, update, got)
}

func TestEncodeBroadcastMessage(t *testing.T) {
	t.Run("update as numeric array", func(t *testing.T) {
		data, err := EncodeBroadcastMessage(&entity.BroadcastMessage{
			Type:    entity.MessageTypeUpdate,
			NoteID:  "n1",
			Updates: []byte{1, 2, 3},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"update","noteId":"n1","updates":[1,2,3]}`, string(data))
	})

	t.Run("presence without last seen", func(t *testing.T) {
		data, err := EncodeBroadcastMessage(&entity.BroadcastMessage{
			Type:   entity.MessageTypePresence,
			NoteID: "n1",
			User:   &entity.CollaborativeUser{ID: "u1", Name: "Fox", Color: "#f87171"},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"presence","noteId":"n1","user":{"id":"u1","name":"Fox","color":"#f87171"}}`, string(data))
	})
}

func TestDecodeBroadcastMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *entity.BroadcastMessage
		wantErr bool
		isBad   bool
	}{
		{
			name: "presence",
			data: `{"type":"presence","noteId":"n1","user":{"id":"u1","name":"Fox","color":"#f87171"}}`,
			want: &entity.BroadcastMessage{
				Type:   entity.MessageTypePresence,
				NoteID: "n1",
				User:   &entity.CollaborativeUser{ID: "u1", Name: "Fox", Color: "#f87171"},
			},
		},
		{
			name: "leave",
			data: `{"type":"leave","noteId":"n1","user":{"id":"u1","name":"Fox","color":"#f87171"}}`,
			want: &entity.BroadcastMessage{
				Type:   entity.MessageTypeLeave,
				NoteID: "n1",
				User:   &entity.CollaborativeUser{ID: "u1", Name: "Fox", Color: "#f87171"},
			},
		},
		{
			name: "update",
			data: `{"type":"update","noteId":"n1","updates":[1,2,3]}`,
			want: &entity.BroadcastMessage{
				Type:    entity.MessageTypeUpdate,
				NoteID:  "n1",
				Updates: []byte{1, 2, 3},
			},
		},
		{
			name: "reserved awareness tag",
			data: `{"type":"awareness","noteId":"n1"}`,
			want: &entity.BroadcastMessage{
				Type:   entity.MessageTypeAwareness,
				NoteID: "n1",
			},
		},
		{
			name:    "update out of range",
			data:    `{"type":"update","noteId":"n1","updates":[1,999]}`,
			wantErr: true,
			isBad:   true,
		},
		{
			name:    "presence without user",
			data:    `{"type":"presence","noteId":"n1"}`,
			wantErr: true,
			isBad:   true,
		},
		{
			name:    "missing note id",
			data:    `{"type":"leave","user":{"id":"u1"}}`,
			wantErr: true,
			isBad:   true,
		},
		{
			name:    "unknown type",
			data:    `{"type":"cursor","noteId":"n1"}`,
			wantErr: true,
			isBad:   true,
		},
		{
			name:    "empty payload",
			data:    ``,
			wantErr: true,
			isBad:   true,
		},
		{
			name:    "invalid json",
			data:    `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBroadcastMessage([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.isBad, errors.IsBadMessage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

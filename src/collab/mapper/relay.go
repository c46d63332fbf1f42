// Package mapper converts between wire models and domain entities.
package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/knowtis/knowtis-collab/src/collab/entity"
	"github.com/knowtis/knowtis-collab/src/collab/internal/errors"
	"github.com/knowtis/knowtis-collab/src/collab/model"
)

// CollaborativeUserToModel maps a CollaborativeUser entity to its wire equivalent.
// A zero LastSeen is omitted from the wire.
func CollaborativeUserToModel(u *entity.CollaborativeUser) *model.RelayUser {
	if u == nil {
		return nil
	}
	m := &model.RelayUser{
		ID:    u.ID,
		Name:  u.Name,
		Color: u.Color,
	}
	if !u.LastSeen.IsZero() {
		ms := u.LastSeen.UnixMilli()
		m.LastSeen = &ms
	}
	return m
}

// ModelToCollaborativeUser maps a wire user to its entity equivalent.
func ModelToCollaborativeUser(m *model.RelayUser) *entity.CollaborativeUser {
	if m == nil {
		return nil
	}
	u := &entity.CollaborativeUser{
		ID:    m.ID,
		Name:  m.Name,
		Color: m.Color,
	}
	if m.LastSeen != nil {
		u.LastSeen = time.UnixMilli(*m.LastSeen)
	}
	return u
}

// UpdateToModel widens update bytes to the plain numeric array used on the relay channel.
func UpdateToModel(update []byte) []int {
	if update == nil {
		return nil
	}
	result := make([]int, len(update))
	for i, b := range update {
		result[i] = int(b)
	}
	return result
}

// ModelToUpdate narrows a numeric array back to update bytes.
func ModelToUpdate(values []int) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	result := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, &errors.UpdateByteError{Index: i, Value: v}
		}
		result[i] = byte(v)
	}
	return result, nil
}

// BroadcastMessageToModel maps a relay message entity to its wire equivalent.
func BroadcastMessageToModel(msg *entity.BroadcastMessage) *model.RelayMessage {
	return &model.RelayMessage{
		Type:    string(msg.Type),
		NoteID:  msg.NoteID,
		User:    CollaborativeUserToModel(msg.User),
		Updates: UpdateToModel(msg.Updates),
	}
}

// ModelToBroadcastMessage maps a wire relay message to its entity equivalent, validating the fields each type needs.
func ModelToBroadcastMessage(m *model.RelayMessage) (*entity.BroadcastMessage, error) {
	msg := &entity.BroadcastMessage{
		Type:   entity.MessageType(m.Type),
		NoteID: m.NoteID,
	}

	switch msg.Type {
	case entity.MessageTypePresence, entity.MessageTypeLeave:
		if m.User == nil {
			return nil, errors.NoUserOnWireError
		}
		msg.User = ModelToCollaborativeUser(m.User)
	case entity.MessageTypeUpdate:
		updates, err := ModelToUpdate(m.Updates)
		if err != nil {
			return nil, err
		}
		msg.Updates = updates
	case entity.MessageTypeAwareness:
	default:
		return nil, &errors.UnknownMessageTypeError{Type: m.Type}
	}

	if msg.NoteID == "" {
		return nil, errors.NoNoteIDOnWireError
	}
	return msg, nil
}

// EncodeBroadcastMessage serializes a relay message for the broadcast channel.
func EncodeBroadcastMessage(msg *entity.BroadcastMessage) ([]byte, error) {
	data, err := json.Marshal(BroadcastMessageToModel(msg))
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", msg.Type, err)
	}
	return data, nil
}

// DecodeBroadcastMessage parses and validates a relay message received from the broadcast channel.
func DecodeBroadcastMessage(data []byte) (*entity.BroadcastMessage, error) {
	if len(data) == 0 {
		return nil, errors.NoMessageOnWireError
	}
	var m model.RelayMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding relay message: %w", err)
	}
	return ModelToBroadcastMessage(&m)
}

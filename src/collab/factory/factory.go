// Package factory builds randomized fixtures for tests.
package factory

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/gofrs/uuid"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
	viewplugin "github.com/knowtis/knowtis-collab/src/collab/entity/view-plugin"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// User returns a CollaborativeUser with a random id and the given name and color.
func User(name, color string) entity.CollaborativeUser {
	return entity.CollaborativeUser{
		ID:    UUID().String(),
		Name:  name,
		Color: color,
	}
}

// AwarenessEntry returns a fully populated awareness entry for a peer.
func AwarenessEntry(clientID uint64, name, color string, anchor, head int) entity.AwarenessEntry {
	return entity.AwarenessEntry{
		ClientID: clientID,
		State: entity.AwarenessState{
			User:   &entity.UserInfo{Name: name, Color: color},
			Cursor: &entity.CursorPosition{Anchor: anchor, Head: head},
		},
	}
}

// CursorPosition returns a random selection within [0, size].
func CursorPosition(size int) entity.CursorPosition {
	if size <= 0 {
		return entity.CursorPosition{}
	}
	return entity.CursorPosition{Anchor: rand.Intn(size + 1), Head: rand.Intn(size + 1)}
}

// Update returns random update bytes of the given length.
func Update(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return b
}

// PluginInfoValid is a factory for PluginInfo that passes validation.
func PluginInfoValid(id int) viewplugin.PluginInfo {
	name := fmt.Sprintf("test-plugin-%v", id)
	return viewplugin.PluginInfo{
		Priorities: map[string]viewplugin.Priority{
			viewplugin.MethodCreate: viewplugin.PriorityHigh,
		},
		Methods: &viewplugin.Methods{
			PluginNameKey: name,
			OnCreate:      func(ctx context.Context) error { return nil },
		},
		NameKey: name,
	}
}

// PluginInfoInvalid is a factory for PluginInfo that fails validation.
func PluginInfoInvalid(id int) viewplugin.PluginInfo {
	return viewplugin.PluginInfo{
		Priorities: map[string]viewplugin.Priority{
			viewplugin.MethodCreate: viewplugin.PriorityHigh,
		},
		Methods: &viewplugin.Methods{},
		NameKey: fmt.Sprintf("test-plugin-%v", id),
	}
}

// Package identity generates the per-process collaborative user.
package identity

import (
	"strings"
	"unicode/utf16"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gofrs/uuid"
	"github.com/knowtis/knowtis-collab/src/collab/entity"
)

const (
	// AnonymousName is used when no user id is available to seed a name.
	AnonymousName = "Anonymous User"
	// FallbackColor is used when the palette is empty.
	FallbackColor = "#999999"
)

// NewUser creates the user that represents this process: a fresh random id, a name derived from it, and a random
// palette color.
func NewUser(colors []string) entity.CollaborativeUser {
	id := uuid.Must(uuid.NewV4()).String()
	return entity.CollaborativeUser{
		ID:    id,
		Name:  DisplayName(id),
		Color: RandomColor(colors),
	}
}

// DisplayName derives a stable "Adjective Animal" name from a user id.
func DisplayName(userID string) string {
	if userID == "" {
		return AnonymousName
	}

	var seed uint32
	for _, unit := range utf16.Encode([]rune(userID)) {
		seed = seed*31 + uint32(unit)
	}

	// A zero seed makes gofakeit pick a random one.
	faker := gofakeit.New(uint64(seed) + 1)
	return capitalize(faker.AdjectiveDescriptive()) + " " + capitalize(faker.Animal())
}

// RandomColor picks a palette entry uniformly.
func RandomColor(colors []string) string {
	if len(colors) == 0 {
		return FallbackColor
	}
	return gofakeit.RandomString(colors)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

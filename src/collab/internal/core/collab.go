package core

import (
	"fmt"
	"time"

	"go.uber.org/config"
)

const _collabConfigKey = "collab"

// DefaultCursorColors is the palette remote carets are tinted from.
var DefaultCursorColors = []string{
	"#f87171", // red
	"#fb923c", // orange
	"#facc15", // yellow
	"#4ade80", // green
	"#22d3ee", // cyan
	"#818cf8", // indigo
	"#c084fc", // purple
	"#f472b6", // pink
}

// CollabConfig holds the timing and naming constants shared by the relay, the sessions and the editor host.
type CollabConfig struct {
	ChannelName      string        `yaml:"channelName"`
	RoomPrefix       string        `yaml:"roomPrefix"`
	PresenceInterval time.Duration `yaml:"presenceInterval"`
	StaleUserTimeout time.Duration `yaml:"staleUserTimeout"`
	CursorColors     []string      `yaml:"cursorColors"`
}

// DefaultCollabConfig returns the settings used when a key is absent from configuration.
func DefaultCollabConfig() CollabConfig {
	return CollabConfig{
		ChannelName:      "collaborative-knowtis-sync",
		RoomPrefix:       "knowtis-collab",
		PresenceInterval: 5 * time.Second,
		StaleUserTimeout: 12 * time.Second,
		CursorColors:     append([]string(nil), DefaultCursorColors...),
	}
}

// NewCollabConfig populates CollabConfig from the "collab" section, falling back to defaults per field.
func NewCollabConfig(provider config.Provider) (CollabConfig, error) {
	cfg := CollabConfig{}
	if v := provider.Get(_collabConfigKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return CollabConfig{}, fmt.Errorf("loading %s config: %w", _collabConfigKey, err)
		}
	}

	defaults := DefaultCollabConfig()
	if cfg.ChannelName == "" {
		cfg.ChannelName = defaults.ChannelName
	}
	if cfg.RoomPrefix == "" {
		cfg.RoomPrefix = defaults.RoomPrefix
	}
	if cfg.PresenceInterval <= 0 {
		cfg.PresenceInterval = defaults.PresenceInterval
	}
	if cfg.StaleUserTimeout <= 0 {
		cfg.StaleUserTimeout = defaults.StaleUserTimeout
	}
	if len(cfg.CursorColors) == 0 {
		cfg.CursorColors = defaults.CursorColors
	}
	return cfg, nil
}

// RoomName returns the peer transport room for a note.
func (c CollabConfig) RoomName(noteID string) string {
	return fmt.Sprintf("%s-%s", c.RoomPrefix, noteID)
}

package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
)

func TestNewCollabConfig(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected CollabConfig
	}{
		{
			name:     "missing section uses defaults",
			yaml:     "service:\n  name: knowtis-collab\n",
			expected: DefaultCollabConfig(),
		},
		{
			name: "overrides are kept and gaps are filled",
			yaml: `
collab:
  channelName: test-channel
  presenceInterval: 1s
  staleUserTimeout: 3s
  cursorColors: ["#000000"]
`,
			expected: CollabConfig{
				ChannelName:      "test-channel",
				RoomPrefix:       "knowtis-collab",
				PresenceInterval: time.Second,
				StaleUserTimeout: 3 * time.Second,
				CursorColors:     []string{"#000000"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := config.NewYAML(config.Source(strings.NewReader(tt.yaml)))
			require.NoError(t, err)

			cfg, err := NewCollabConfig(provider)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg)
		})
	}
}

func TestRoomName(t *testing.T) {
	cfg := DefaultCollabConfig()
	assert.Equal(t, "knowtis-collab-n1", cfg.RoomName("n1"))
}

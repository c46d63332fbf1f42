package serverinfofile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func newProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return provider
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "path configured",
			yaml:     "serverInfoFilePath: /tmp/knowtis-info.json",
			wantPath: "/tmp/knowtis-info.json",
		},
		{
			name: "no path",
			yaml: "other: 1",
		},
		{
			name:    "wrong type",
			yaml:    "serverInfoFilePath: [1, 2]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			f, err := New(Params{
				Config:    newProvider(t, tt.yaml),
				Lifecycle: lc,
				Logger:    zap.NewNop().Sugar(),
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, f.(*module).infofile)
		})
	}
}

func TestOnStop(t *testing.T) {
	t.Run("file removed", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "test")
		require.NoError(t, err)
		tempFile.Close()
		defer os.Remove(tempFile.Name())

		m := module{logger: zap.NewNop().Sugar(), infofile: tempFile.Name()}
		assert.NoError(t, m.OnStop(context.Background()))
		_, err = os.Stat(tempFile.Name())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("file never written", func(t *testing.T) {
		m := module{logger: zap.NewNop().Sugar(), infofile: filepath.Join(t.TempDir(), "missing.json")}
		assert.NoError(t, m.OnStop(context.Background()))
	})

	t.Run("no path", func(t *testing.T) {
		m := module{logger: zap.NewNop().Sugar()}
		assert.NoError(t, m.OnStop(context.Background()))
	})
}

func TestUpdateField(t *testing.T) {
	t.Run("multiple successful updates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "info.json")
		m := module{
			infofile:     path,
			logger:       zap.NewNop().Sugar(),
			fileContents: make(map[string]string),
		}

		steps := []struct {
			key        string
			value      string
			expectJSON string
		}{
			{key: "signaling-address", value: "127.0.0.1:4444", expectJSON: `{"signaling-address":"127.0.0.1:4444"}`},
			{key: "signaling-address", value: "127.0.0.1:5555", expectJSON: `{"signaling-address":"127.0.0.1:5555"}`},
			{key: "signaling-url", value: "ws://127.0.0.1:5555/ws", expectJSON: `{"signaling-address":"127.0.0.1:5555","signaling-url":"ws://127.0.0.1:5555/ws"}`},
		}

		for _, step := range steps {
			require.NoError(t, m.UpdateField(step.key, step.value))
			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, step.expectJSON, string(contents))
		}
		assert.Equal(t, "127.0.0.1:5555", m.Fields()["signaling-address"])
	})

	t.Run("memory only", func(t *testing.T) {
		m := module{logger: zap.NewNop().Sugar(), fileContents: make(map[string]string)}
		require.NoError(t, m.UpdateField("key", "value"))
		assert.Equal(t, map[string]string{"key": "value"}, m.Fields())
	})

	t.Run("file write failure", func(t *testing.T) {
		m := module{
			infofile:     t.TempDir(),
			logger:       zap.NewNop().Sugar(),
			fileContents: make(map[string]string),
		}
		assert.Error(t, m.UpdateField("key", "value"))
	})
}

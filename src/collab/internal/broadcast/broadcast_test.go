package broadcast

import (
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	s := miniredis.RunT(t)

	tests := []struct {
		name    string
		yaml    string
		want    any
		wantErr bool
	}{
		{
			name: "default",
			yaml: "service: {}",
			want: &Bus{},
		},
		{
			name: "memory",
			yaml: "broadcast:\n  driver: memory",
			want: &Bus{},
		},
		{
			name: "redis",
			yaml: "broadcast:\n  driver: redis\n  redisURL: redis://" + s.Addr(),
			want: &RedisOpener{},
		},
		{
			name:    "unknown driver",
			yaml:    "broadcast:\n  driver: carrier-pigeon",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := config.NewYAML(config.Source(strings.NewReader(tt.yaml)))
			require.NoError(t, err)
			lc := fxtest.NewLifecycle(t)

			opener, err := New(Params{
				Config:    provider,
				Lifecycle: lc,
				Logger:    zap.NewNop().Sugar(),
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, opener)
			lc.RequireStart().RequireStop()
		})
	}
}

package peertransport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/knowtis/knowtis-collab/src/collab/internal/clock"
	"github.com/knowtis/knowtis-collab/src/collab/internal/crdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	s := miniredis.RunT(t)

	tests := []struct {
		name        string
		yaml        string
		wantDialer  any
		wantTimeout time.Duration
		wantErr     bool
	}{
		{
			name:        "default",
			yaml:        "service: {}",
			wantDialer:  &ChannelDialer{},
			wantTimeout: 30 * time.Second,
		},
		{
			name:        "redis",
			yaml:        "transport:\n  driver: redis\n  redisURL: redis://" + s.Addr() + "\n  outdatedTimeout: 10s",
			wantDialer:  &ChannelDialer{},
			wantTimeout: 10 * time.Second,
		},
		{
			name:        "websocket",
			yaml:        "transport:\n  driver: websocket\n  signalingURL: ws://localhost:4444/ws",
			wantDialer:  &WebSocketDialer{},
			wantTimeout: 30 * time.Second,
		},
		{
			name:    "websocket without url",
			yaml:    "transport:\n  driver: websocket",
			wantErr: true,
		},
		{
			name:    "bad redis url",
			yaml:    "transport:\n  driver: redis\n  redisURL: ftp://nowhere",
			wantErr: true,
		},
		{
			name:    "unknown driver",
			yaml:    "transport:\n  driver: smoke-signals",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := config.NewYAML(config.Source(strings.NewReader(tt.yaml)))
			require.NoError(t, err)
			lc := fxtest.NewLifecycle(t)

			transport, err := New(Params{
				Config:    provider,
				Lifecycle: lc,
				Logger:    zap.NewNop().Sugar(),
				Clock:     clock.New(),
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantDialer, transport.dialer)
			assert.Equal(t, tt.wantTimeout, transport.outdatedTimeout)
			lc.RequireStart().RequireStop()
		})
	}
}

func TestProviderOverRedis(t *testing.T) {
	s := miniredis.RunT(t)
	provider, err := config.NewYAML(config.Source(strings.NewReader("transport:\n  driver: redis\n  redisURL: redis://" + s.Addr())))
	require.NoError(t, err)
	lc := fxtest.NewLifecycle(t)
	transport, err := New(Params{Config: provider, Lifecycle: lc, Logger: zap.NewNop().Sugar(), Clock: clock.New()})
	require.NoError(t, err)
	lc.RequireStart()
	defer lc.RequireStop()

	ctx := context.Background()
	a := transport.NewProvider("knowtis-n1", crdt.NewDoc(crdt.WithClientID(1)))
	b := transport.NewProvider("knowtis-n1", crdt.NewDoc(crdt.WithClientID(2)))
	defer func() {
		a.Destroy()
		b.Destroy()
	}()
	require.NoError(t, a.Connect(ctx))
	require.NoError(t, b.Connect(ctx))

	require.NoError(t, a.Doc().Fragment("content").Insert(0, "via redis"))
	assert.Eventually(t, func() bool { return content(b) == "via redis" }, _wait, 5*time.Millisecond)
}

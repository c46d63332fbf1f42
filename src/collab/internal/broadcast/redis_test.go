package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) *RedisOpener {
	s := miniredis.RunT(t)
	opener, err := NewRedisOpener("redis://"+s.Addr(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { opener.Close() })
	return opener
}

func TestNewRedisOpener(t *testing.T) {
	_, err := NewRedisOpener("not a url", zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestRedisDelivery(t *testing.T) {
	ctx := context.Background()
	opener := setupTestRedis(t)

	a, err := opener.Open(ctx, "sync")
	require.NoError(t, err)
	defer a.Close()
	b, err := opener.Open(ctx, "sync")
	require.NoError(t, err)
	defer b.Close()

	var fromA, fromB sink
	a.Subscribe(fromA.handle)
	b.Subscribe(fromB.handle)

	require.NoError(t, a.Post(ctx, []byte("hello")))
	require.NoError(t, a.Post(ctx, []byte("world")))

	assert.Eventually(t, func() bool {
		return len(fromB.messages()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"hello", "world"}, fromB.messages())
	assert.Empty(t, fromA.messages())
}

func TestRedisClose(t *testing.T) {
	ctx := context.Background()
	opener := setupTestRedis(t)

	a, err := opener.Open(ctx, "sync")
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Post(ctx, []byte("late")), ErrClosed)
}

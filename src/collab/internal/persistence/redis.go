package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const _redisKeyPrefix = "knowtis:updates:"

// RedisBackend stores each key's records in a Redis list.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to the Redis server at redisURL.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisBackend{client: client, prefix: _redisKeyPrefix}, nil
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + key
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([][]byte, error) {
	values, err := b.client.LRange(ctx, b.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	result := make([][]byte, 0, len(values))
	for _, v := range values {
		result = append(result, []byte(v))
	}
	return result, nil
}

func (b *RedisBackend) Append(ctx context.Context, key string, record []byte) (int, error) {
	n, err := b.client.RPush(ctx, b.key(key), record).Result()
	if err != nil {
		return 0, fmt.Errorf("append to %q: %w", key, err)
	}
	return int(n), nil
}

func (b *RedisBackend) Replace(ctx context.Context, key string, record []byte) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key(key))
		pipe.RPush(ctx, b.key(key), record)
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace %q: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/knowtis/knowtis-collab/src/collab/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOpener opens channel endpoints backed by Redis Pub/Sub, letting tabs in separate processes share a channel.
type RedisOpener struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisOpener connects to the Redis server at redisURL.
func NewRedisOpener(redisURL string, logger *zap.SugaredLogger) (*RedisOpener, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisOpenerWithClient(client, logger), nil
}

// NewRedisOpenerWithClient creates an opener from an existing Redis client.
func NewRedisOpenerWithClient(client *redis.Client, logger *zap.SugaredLogger) *RedisOpener {
	return &RedisOpener{client: client, logger: logger}
}

// Open subscribes a new endpoint to name. The subscription is confirmed before Open returns.
func (o *RedisOpener) Open(ctx context.Context, name string) (Channel, error) {
	pubsub := o.client.Subscribe(ctx, name)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %q: %w", name, err)
	}

	c := &redisChannel{
		client:   o.client,
		pubsub:   pubsub,
		name:     name,
		sender:   uuid.Must(uuid.NewV4()).String(),
		logger:   o.logger.With("channel", name),
		handlers: make(map[int]Handler),
		stopped:  make(chan struct{}),
	}
	go c.receive()
	return c, nil
}

// Close releases the Redis connection pool.
func (o *RedisOpener) Close() error {
	return o.client.Close()
}

type redisChannel struct {
	client *redis.Client
	pubsub *redis.PubSub
	name   string
	sender string
	logger *zap.SugaredLogger

	mu          sync.Mutex
	handlers    map[int]Handler
	nextHandler int
	closed      bool
	stopped     chan struct{}
}

func (c *redisChannel) Name() string {
	return c.name
}

func (c *redisChannel) Post(ctx context.Context, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("post to %q: %w", c.name, ErrClosed)
	}

	payload, err := json.Marshal(model.BroadcastEnvelope{Sender: c.sender, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := c.client.Publish(ctx, c.name, payload).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", c.name, err)
	}
	return nil
}

func (c *redisChannel) Subscribe(fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, id)
	}
}

func (c *redisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.pubsub.Close()
	<-c.stopped
	return err
}

func (c *redisChannel) receive() {
	defer close(c.stopped)
	for msg := range c.pubsub.Channel() {
		var envelope model.BroadcastEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			c.logger.Warnf("dropping malformed envelope: %v", err)
			continue
		}
		if envelope.Sender == c.sender {
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			continue
		}
		handlers := make([]Handler, 0, len(c.handlers))
		for i := 0; i < c.nextHandler; i++ {
			if fn, ok := c.handlers[i]; ok {
				handlers = append(handlers, fn)
			}
		}
		c.mu.Unlock()

		for _, fn := range handlers {
			fn(envelope.Data)
		}
	}
}

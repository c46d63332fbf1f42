package broadcast

import (
	"context"
	"fmt"
	"sync"
)

// Bus connects in-process channel endpoints. Every endpoint opened on the same Bus with the same name receives the
// posts of the others.
type Bus struct {
	mu       sync.Mutex
	channels map[string]map[*memoryChannel]struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{channels: make(map[string]map[*memoryChannel]struct{})}
}

// Open registers a new endpoint for name.
func (b *Bus) Open(_ context.Context, name string) (Channel, error) {
	c := &memoryChannel{
		bus:      b,
		name:     name,
		handlers: make(map[int]Handler),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	b.mu.Lock()
	peers, ok := b.channels[name]
	if !ok {
		peers = make(map[*memoryChannel]struct{})
		b.channels[name] = peers
	}
	peers[c] = struct{}{}
	b.mu.Unlock()

	go c.pump()
	return c, nil
}

func (b *Bus) peers(c *memoryChannel) []*memoryChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]*memoryChannel, 0, len(b.channels[c.name]))
	for peer := range b.channels[c.name] {
		if peer != c {
			result = append(result, peer)
		}
	}
	return result
}

func (b *Bus) remove(c *memoryChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels[c.name], c)
	if len(b.channels[c.name]) == 0 {
		delete(b.channels, c.name)
	}
}

type memoryChannel struct {
	bus  *Bus
	name string

	mu          sync.Mutex
	queue       [][]byte
	handlers    map[int]Handler
	nextHandler int
	closed      bool

	notify  chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func (c *memoryChannel) Name() string {
	return c.name
}

func (c *memoryChannel) Post(_ context.Context, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("post to %q: %w", c.name, ErrClosed)
	}

	for _, peer := range c.bus.peers(c) {
		peer.enqueue(append([]byte(nil), data...))
	}
	return nil
}

func (c *memoryChannel) Subscribe(fn Handler) func() {
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

func (c *memoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.queue = nil
	c.mu.Unlock()

	c.bus.remove(c)
	close(c.done)
	<-c.stopped
	return nil
}

func (c *memoryChannel) enqueue(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, data)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// pump delivers queued payloads to the handlers in arrival order.
func (c *memoryChannel) pump() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}

		for {
			c.mu.Lock()
			if c.closed || len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			data := c.queue[0]
			c.queue = c.queue[1:]
			handlers := make([]Handler, 0, len(c.handlers))
			for i := 0; i < c.nextHandler; i++ {
				if fn, ok := c.handlers[i]; ok {
					handlers = append(handlers, fn)
				}
			}
			c.mu.Unlock()

			for _, fn := range handlers {
				fn(data)
			}
		}
	}
}

// Package frame schedules callbacks for the next render frame.
package frame

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/config"
	"go.uber.org/fx"
)

const (
	_configKey       = "frame"
	_defaultInterval = 16 * time.Millisecond
)

// Scheduler runs callbacks on a later frame.
type Scheduler interface {
	// RequestFrame runs fn once on the next frame. The returned function cancels it if it has not run yet.
	RequestFrame(fn func()) (cancel func())
}

// Config controls the frame length of the timer scheduler.
type Config struct {
	Interval time.Duration `yaml:"interval"`
}

// Module provides the frame Scheduler.
var Module = fx.Options(
	fx.Provide(New),
)

// New returns a timer scheduler configured from the frame section.
func New(provider config.Provider) (Scheduler, error) {
	cfg := Config{}
	if v := provider.Get(_configKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading %s config: %w", _configKey, err)
		}
	}
	return NewTimer(cfg.Interval), nil
}

type timerScheduler struct {
	interval time.Duration
}

// NewTimer returns a Scheduler that runs each callback interval after it was requested on its own goroutine.
func NewTimer(interval time.Duration) Scheduler {
	if interval <= 0 {
		interval = _defaultInterval
	}
	return &timerScheduler{interval: interval}
}

func (s *timerScheduler) RequestFrame(fn func()) func() {
	t := time.AfterFunc(s.interval, fn)
	return func() { t.Stop() }
}

// Manual is a Scheduler whose frames are advanced explicitly with Flush.
type Manual struct {
	mu      sync.Mutex
	pending map[int]func()
	next    int
}

// NewManual returns a Manual scheduler with no pending frames.
func NewManual() *Manual {
	return &Manual{pending: make(map[int]func())}
}

// RequestFrame queues fn until the next Flush.
func (m *Manual) RequestFrame(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.pending[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.pending, id)
	}
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush runs every callback queued before the call, in request order. Callbacks requested while flushing wait for the
// next Flush.
func (m *Manual) Flush() int {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.pending))
	for id := 0; id < m.next; id++ {
		if fn, ok := m.pending[id]; ok {
			fns = append(fns, fn)
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

//go:generate mockgen -source=clock.go -destination=clockmock/clock_mock.go -package=clockmock

package clock

import (
	"time"
)

// Clock is an interface that abstracts the functionality for measuring and displaying time.
type Clock interface {
	// Sleep pauses the current goroutine for at least the duration d. A negative or zero duration causes Sleep to return immediately.
	Sleep(duration time.Duration)
	// Now returns the current local time.
	Now() time.Time
	// NewTicker returns a Ticker that delivers ticks at the given interval.
	NewTicker(interval time.Duration) Ticker
}

// Ticker delivers ticks on a channel until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type clock struct{}

// New creates a new instance of Clock.
func New() Clock {
	return clock{}
}

func (clock) Sleep(duration time.Duration) {
	time.Sleep(duration)
}

func (clock) Now() time.Time {
	return time.Now()
}

func (clock) NewTicker(interval time.Duration) Ticker {
	return &ticker{t: time.NewTicker(interval)}
}

type ticker struct {
	t *time.Ticker
}

func (t *ticker) C() <-chan time.Time {
	return t.t.C
}

func (t *ticker) Stop() {
	t.t.Stop()
}

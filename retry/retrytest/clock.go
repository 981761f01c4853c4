// Package retrytest provides a deterministic clock for retry loops.
package retrytest

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is a mock clock whose Sleep records the duration and advances time
// instead of blocking.
type Clock struct {
	*clock.Mock

	mu     sync.Mutex
	sleeps []time.Duration
}

// NewClock returns a Clock set to a fixed UTC instant.
func NewClock() *Clock {
	m := clock.NewMock()
	m.Set(time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC))
	return &Clock{Mock: m}
}

func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	c.Mock.Add(d)
}

// Sleeps returns every duration passed to Sleep, in order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Advance moves time forward without recording a sleep, e.g. to simulate a
// slow sensor read or network call.
func (c *Clock) Advance(d time.Duration) {
	c.Mock.Add(d)
}

// Package testutil provides deterministic fixtures shared by the engine
// tests and the scenario harness: a frozen clock and a fixed event ID
// generator. Same scenario, same inputs, identical trace.
package testutil

import (
	"sync"
	"time"
)

// FrozenClock is a settable clock. Time moves only when the test says so.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, though the engine's guard serializes callers anyway.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock frozen at the given instant.
func NewFrozenClock(at time.Time) *FrozenClock {
	return &FrozenClock{now: at}
}

// Now returns the frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to a specific instant.
func (c *FrozenClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

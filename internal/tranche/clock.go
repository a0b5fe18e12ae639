package tranche

import (
	"sync/atomic"
	"time"
)

// Clock supplies the engine's notion of current time. All maturity
// comparisons go through it, so tests and the scenario harness can drive
// time deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// SeqCounter is a monotonic logical counter stamping every emitted event.
// Event ordering in the journal follows seq, never wall-clock time.
//
// Thread-safety: atomic, though the engine's guard already serializes all
// callers.
type SeqCounter struct {
	seq atomic.Int64
}

// Next returns the next sequence number and increments the counter.
func (c *SeqCounter) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqCounter) Current() int64 {
	return c.seq.Load()
}

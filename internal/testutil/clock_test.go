package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestFrozenClock_Stays tests that time does not move on its own.
func TestFrozenClock_Stays(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	c := NewFrozenClock(at)
	assert.Equal(t, at, c.Now())
	assert.Equal(t, at, c.Now())
}

// TestFrozenClock_AdvanceAndSet tests explicit movement.
func TestFrozenClock_AdvanceAndSet(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	c := NewFrozenClock(at)

	c.Advance(90 * time.Second)
	assert.Equal(t, at.Add(90*time.Second), c.Now())

	later := time.Unix(1_800_000_000, 0)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

// TestFixedIDGenerator_Sequential tests reproducible IDs.
func TestFixedIDGenerator_Sequential(t *testing.T) {
	g := &FixedIDGenerator{}
	assert.Equal(t, "ev-000001", g.Generate())
	assert.Equal(t, "ev-000002", g.Generate())
	assert.Equal(t, "ev-000003", g.Generate())
}

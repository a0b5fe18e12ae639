package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator yields sequential, reproducible event IDs
// ("ev-000001", "ev-000002", ...) for golden trace comparison.
type FixedIDGenerator struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next sequential ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("ev-%06d", g.n)
}

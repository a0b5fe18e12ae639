package tranche

import (
	"math/big"
	"time"

	"github.com/splitfi/tranche/internal/fixed"
)

// GlobalScales is the heart of the accrual state machine.
//
// Maxscale is the running maximum of every adapter scale this instance has
// observed. It never decreases. Yield accrues only against rises in
// maxscale; a falling raw scale produces zero new accrual, never negative.
//
// Mscale is zero until settlement. Settlement happens exactly once, at the
// first operation invoked at or after maturity, freezing the scale seen at
// that touch. Afterwards Mscale is immutable no matter how the adapter's
// scale keeps moving.
type GlobalScales struct {
	Mscale   *big.Int
	Maxscale *big.Int
}

// NewGlobalScales returns zeroed scales.
func NewGlobalScales() GlobalScales {
	return GlobalScales{Mscale: new(big.Int), Maxscale: new(big.Int)}
}

// Settled reports whether the settlement transition has happened.
func (g *GlobalScales) Settled() bool {
	return g.Mscale.Sign() != 0
}

// Update folds one observation of the adapter's scale into the state
// machine. It is a pure function of (current, now, maturity) against the
// receiver and is idempotent within an invocation: applying the same
// observation twice changes nothing.
func (g *GlobalScales) Update(current *big.Int, now, maturity time.Time) {
	if current.Cmp(g.Maxscale) > 0 {
		g.Maxscale = fixed.Clone(current)
	}
	if !g.Settled() && !now.Before(maturity) {
		g.Mscale = fixed.Clone(current)
	}
}

// Clone returns an independent copy.
func (g *GlobalScales) Clone() GlobalScales {
	return GlobalScales{
		Mscale:   fixed.Clone(g.Mscale),
		Maxscale: fixed.Clone(g.Maxscale),
	}
}

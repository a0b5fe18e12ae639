package adapter

import (
	"math/big"
	"time"

	"github.com/splitfi/tranche/internal/fixed"
	"github.com/splitfi/tranche/internal/token"
)

// Clock supplies the current time to the vault simulation.
type Clock interface {
	Now() time.Time
}

// VaultAdapter simulates an interest-accruing vault: its scale rises
// linearly at a per-second WAD rate from a base observed at construction,
// and can be cut by Slash to model a loss event.
//
// The accrual is a pure function of elapsed time, so repeated Scale calls
// within the same instant report the same value.
type VaultAdapter struct {
	custody

	clock      Clock
	start      time.Time
	base       *big.Int // scale at start
	ratePerSec *big.Int // WAD added to the scale each second
	slashed    *big.Int // cumulative scale cut from loss events
}

// NewVault creates a vault adapter accruing at ratePerSec (WAD per second)
// from initialScale.
func NewVault(underlying, target *token.Ledger, account string, initialScale, ratePerSec *big.Int, clock Clock) (*VaultAdapter, error) {
	if initialScale == nil || initialScale.Sign() <= 0 {
		return nil, ErrNonPositiveScale
	}
	if ratePerSec == nil {
		ratePerSec = new(big.Int)
	}
	v := &VaultAdapter{
		clock:      clock,
		start:      clock.Now(),
		base:       fixed.Clone(initialScale),
		ratePerSec: fixed.Clone(ratePerSec),
		slashed:    new(big.Int),
	}
	v.custody = custody{
		underlying: underlying,
		target:     target,
		account:    account,
		reserve:    account + ":reserve",
	}
	v.custody.scaleFn = v.Scale
	return v, nil
}

// Scale returns base + rate*elapsed - slashed, floored at 1.
func (v *VaultAdapter) Scale() (*big.Int, error) {
	elapsed := int64(v.clock.Now().Sub(v.start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	s := new(big.Int).Mul(v.ratePerSec, big.NewInt(elapsed))
	s.Add(s, v.base)
	s.Sub(s, v.slashed)
	if s.Sign() <= 0 {
		s.SetInt64(1)
	}
	return s, nil
}

// Slash cuts the current scale by bps, modeling a loss event at the yield
// source. The cut is permanent; accrual continues from the reduced level.
func (v *VaultAdapter) Slash(bps int64) error {
	if bps < 0 || bps > 10000 {
		return ErrInvalidBPS
	}
	current, err := v.Scale()
	if err != nil {
		return err
	}
	cut := fixed.BPSDown(current, bps)
	v.slashed.Add(v.slashed, cut)
	return nil
}

var (
	_ Adapter = (*MockAdapter)(nil)
	_ Adapter = (*VaultAdapter)(nil)
	_ Binder  = (*MockAdapter)(nil)
	_ Binder  = (*VaultAdapter)(nil)
)

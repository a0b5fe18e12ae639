package tranche

import (
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
)

// State is the engine's mutable ledger state: the global scale machine,
// per-holder settlement records and the issuance fee accumulator. It is an
// explicit injectable table rather than ambient state, so the settlement
// and scale-update algorithms are unit-testable against a bare State.
type State struct {
	Scales GlobalScales

	// lscales records, per holder, the maxscale as of the holder's last
	// settlement. Zero means never settled.
	lscales map[string]*big.Int

	// unclaimed banks yield (share-denominated) computed at a settlement
	// that could not pay out immediately, e.g. across a transfer.
	unclaimed map[string]*big.Int

	// issuanceFees accumulates fee shares. Claiming leaves a 1-unit
	// residue so the accumulator slot stays warm once fees have accrued.
	issuanceFees *big.Int
}

// NewState returns an empty ledger state.
func NewState() *State {
	return &State{
		Scales:       NewGlobalScales(),
		lscales:      make(map[string]*big.Int),
		unclaimed:    make(map[string]*big.Int),
		issuanceFees: new(big.Int),
	}
}

// LScale returns a copy of the holder's last-settlement scale; zero if the
// holder has never been settled.
func (s *State) LScale(holder string) *big.Int {
	if v, ok := s.lscales[holder]; ok {
		return fixed.Clone(v)
	}
	return new(big.Int)
}

// SetLScale records the holder's settlement scale.
func (s *State) SetLScale(holder string, v *big.Int) {
	s.lscales[holder] = fixed.Clone(v)
}

// Unclaimed returns a copy of the holder's banked yield in shares.
func (s *State) Unclaimed(holder string) *big.Int {
	if v, ok := s.unclaimed[holder]; ok {
		return fixed.Clone(v)
	}
	return new(big.Int)
}

// AddUnclaimed banks additional yield shares for the holder.
func (s *State) AddUnclaimed(holder string, v *big.Int) {
	if v.Sign() == 0 {
		return
	}
	cur, ok := s.unclaimed[holder]
	if !ok {
		cur = new(big.Int)
		s.unclaimed[holder] = cur
	}
	cur.Add(cur, v)
}

// ClearUnclaimed zeroes the holder's banked yield.
func (s *State) ClearUnclaimed(holder string) {
	delete(s.unclaimed, holder)
}

// IssuanceFees returns a copy of the accumulated fee shares.
func (s *State) IssuanceFees() *big.Int {
	return fixed.Clone(s.issuanceFees)
}

// AddIssuanceFees grows the fee accumulator.
func (s *State) AddIssuanceFees(v *big.Int) {
	s.issuanceFees.Add(s.issuanceFees, v)
}

// TakeIssuanceFees drains the accumulator down to a 1-unit residue and
// returns the drained amount. Returns zero when there is nothing above the
// residue.
func (s *State) TakeIssuanceFees() *big.Int {
	one := big.NewInt(1)
	if s.issuanceFees.Cmp(one) <= 0 {
		return new(big.Int)
	}
	taken := new(big.Int).Sub(s.issuanceFees, one)
	s.issuanceFees.Set(one)
	return taken
}

package tranche

import (
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
	"github.com/splitfi/tranche/internal/token"
)

// Read-only entry points. They run under the same reentrancy guard as the
// mutating operations (rejecting with ErrReentrantRead when nested), and
// they DO advance the scale state machine: the first touch at or after
// maturity settles mscale regardless of whether the touch reads or writes.
//
// The preview family never fails on a legitimately-zero answer: asking
// what a redemption would pay before maturity returns zero, it does not
// error. Each preview agrees exactly with its mutating counterpart when
// invoked in the same logical step.

// PreviewRedeem returns what Redeem would pay for principalAmount now.
func (t *Tranche) PreviewRedeem(principalAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, cscale, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	if !t.matured() || principalAmount == nil || principalAmount.Sign() <= 0 {
		return new(big.Int), nil
	}
	shares, _ := computeSharesRedeemed(g, principalAmount, t.series.TiltBPS)
	return fixed.MulWadDown(shares, cscale), nil
}

// PreviewWithdraw returns the principal Withdraw would burn to pay out
// underlyingAmount now.
func (t *Tranche) PreviewWithdraw(underlyingAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, _, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	if !t.matured() || underlyingAmount == nil || underlyingAmount.Sign() <= 0 {
		return new(big.Int), nil
	}
	return computePrincipalForUnderlying(g, underlyingAmount, t.series.TiltBPS), nil
}

// PreviewCollect returns what Collect would pay the holder now.
func (t *Tranche) PreviewCollect(holder string) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, cscale, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	accrued := t.state.Unclaimed(holder)
	if lscale := t.state.LScale(holder); lscale.Sign() != 0 {
		accrued.Add(accrued, computeAccruedInterest(g.Maxscale, lscale, t.yt.BalanceOf(holder)))
	}
	return fixed.MulWadDown(accrued, cscale), nil
}

// MaxRedeem returns the largest principal amount Redeem accepts for the
// holder now: the full principal balance after maturity, zero before.
func (t *Tranche) MaxRedeem(holder string) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if _, _, err := t.touchScales(); err != nil {
		return nil, err
	}
	if !t.matured() {
		return new(big.Int), nil
	}
	return t.pt.BalanceOf(holder), nil
}

// MaxWithdraw returns the largest underlying amount Withdraw can pay the
// holder now.
func (t *Tranche) MaxWithdraw(holder string) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, cscale, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	if !t.matured() {
		return new(big.Int), nil
	}
	bal := t.pt.BalanceOf(holder)
	if bal.Sign() == 0 {
		return new(big.Int), nil
	}
	shares, _ := computeSharesRedeemed(g, bal, t.series.TiltBPS)
	return fixed.MulWadDown(shares, cscale), nil
}

// ConvertToUnderlying values principalAmount in underlying at current
// conditions: redemption value after settlement, nominal share backing at
// the current scale before it.
func (t *Tranche) ConvertToUnderlying(principalAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, cscale, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	if principalAmount == nil || principalAmount.Sign() <= 0 {
		return new(big.Int), nil
	}
	if g.Settled() {
		shares, _ := computeSharesRedeemed(g, principalAmount, t.series.TiltBPS)
		return fixed.MulWadDown(shares, cscale), nil
	}
	if g.Maxscale.Sign() == 0 {
		return new(big.Int), nil
	}
	shares := fixed.DivWadDown(principalAmount, g.Maxscale)
	return fixed.MulWadDown(shares, cscale), nil
}

// ConvertToPrincipal is the inverse of ConvertToUnderlying.
func (t *Tranche) ConvertToPrincipal(underlyingAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	g, cscale, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	if underlyingAmount == nil || underlyingAmount.Sign() <= 0 {
		return new(big.Int), nil
	}
	if g.Settled() {
		return computePrincipalForUnderlying(g, underlyingAmount, t.series.TiltBPS), nil
	}
	if cscale.Sign() == 0 {
		return new(big.Int), nil
	}
	return fixed.MulDivDown(underlyingAmount, g.Maxscale, cscale), nil
}

// GetGlobalScales returns a copy of the scale state machine after folding
// in the current observation.
func (t *Tranche) GetGlobalScales() (GlobalScales, error) {
	if err := t.guard.enterRead(); err != nil {
		return GlobalScales{}, err
	}
	defer t.guard.exit()
	g, _, err := t.touchScales()
	if err != nil {
		return GlobalScales{}, err
	}
	return g, nil
}

// LScale returns the holder's last-settlement scale; zero means never
// settled. Snapshot read, no scale touch.
func (t *Tranche) LScale(holder string) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	return t.state.LScale(holder), nil
}

// UnclaimedYield returns the holder's banked yield in shares.
func (t *Tranche) UnclaimedYield(holder string) (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	return t.state.Unclaimed(holder), nil
}

// IssuanceFees returns the accumulated fee shares.
func (t *Tranche) IssuanceFees() (*big.Int, error) {
	if err := t.guard.enterRead(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	return t.state.IssuanceFees(), nil
}

// Administrative operations. All serialized through the same guard as the
// accounting operations.

// ClaimIssuanceFees converts the accumulated fee shares to underlying and
// pays the fee recipient, leaving the 1-unit residue in the accumulator.
// Management only.
func (t *Tranche) ClaimIssuanceFees(caller string) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if caller != t.series.Management {
		return nil, ErrOnlyManagement
	}
	if _, _, err := t.touchScales(); err != nil {
		return nil, err
	}
	taken := t.state.TakeIssuanceFees()
	if taken.Sign() == 0 {
		return new(big.Int), nil
	}
	paid, err := t.payShares(taken, t.feeRecipient)
	if err != nil {
		return nil, err
	}
	t.emit(EventFeesClaimed, caller, t.account, t.feeRecipient, map[string]*big.Int{
		"shares":     taken,
		"underlying": paid,
	})
	return paid, nil
}

// SetFeeRecipient changes where claimed fees are paid. Management only.
func (t *Tranche) SetFeeRecipient(caller, recipient string) error {
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()
	if caller != t.series.Management {
		return ErrOnlyManagement
	}
	if recipient == token.ZeroAccount {
		return ErrZeroAddress
	}
	t.feeRecipient = recipient
	return nil
}

// Pause stops all mutating operations. Management only.
func (t *Tranche) Pause(caller string) error {
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()
	if caller != t.series.Management {
		return ErrOnlyManagement
	}
	t.paused = true
	t.emit(EventPaused, caller, "", "", nil)
	return nil
}

// Unpause reopens mutating operations. Management only.
func (t *Tranche) Unpause(caller string) error {
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()
	if caller != t.series.Management {
		return ErrOnlyManagement
	}
	t.paused = false
	t.emit(EventUnpaused, caller, "", "", nil)
	return nil
}

// RecoverTokens sweeps stuck tokens off the engine's custody account.
// The adapter's share token is protected: it backs outstanding claims.
// Management only.
func (t *Tranche) RecoverTokens(caller string, ledger *token.Ledger, to string) error {
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()
	if caller != t.series.Management {
		return ErrOnlyManagement
	}
	if to == token.ZeroAccount {
		return ErrZeroAddress
	}
	if ledger == t.adapter.Target() {
		return ErrProtectedToken
	}
	bal := ledger.BalanceOf(t.account)
	if bal.Sign() == 0 {
		return nil
	}
	return ledger.Transfer(t.account, to, bal)
}

// Package tranche implements the core accrual engine: it splits deposits
// pulled through a yield-source adapter into a principal claim and a yield
// claim, attributes accrued yield per holder against a monotonic global
// scale, and settles the whole series at maturity.
//
// ARCHITECTURE:
//
// Single-threaded, reentrant-by-construction. Every externally reachable
// entry point runs under one global reentrancy guard shared with the
// companion yield token; a nested call while an operation is in flight
// fails immediately (see guard.go). There is no queuing, no background
// work, no retries.
//
// Scale state machine:
// Every entry point first folds the adapter's current scale into
// GlobalScales: maxscale rises monotonically, and the first touch at or
// after maturity freezes mscale exactly once. Holder-level settlement is
// lazy: a holder's accrual is computed only when the holder collects,
// redeems, issues again, or moves yield tokens.
//
// Settlement ordering:
// Settlement always precedes any balance mutation that depends on it. The
// yield token calls back into UpdateUnclaimedYield before moving any
// balance, so transferred tokens never carry the sender's pending yield.
package tranche

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/splitfi/tranche/internal/adapter"
	"github.com/splitfi/tranche/internal/fixed"
	"github.com/splitfi/tranche/internal/token"
)

// Tranche is one deployed series: the engine instance owning both claim
// tokens and the global accounting state.
type Tranche struct {
	series  Series
	adapter adapter.Adapter
	clock   Clock
	logger  *slog.Logger
	sink    EventSink
	ids     EventIDGenerator
	seq     SeqCounter

	guard  reentrancyGuard
	paused bool

	pt *token.Ledger
	yt *token.YieldToken

	state *State

	// account is the engine's custody identity on the ledgers; shares
	// backing outstanding claims sit here.
	account string
	// ytAccount is the identity the companion token presents to the
	// settlement hook entry point.
	ytAccount    string
	feeRecipient string
}

// Option configures a Tranche at construction.
type Option func(*Tranche)

// WithClock substitutes the time source. Tests use a frozen clock.
func WithClock(c Clock) Option {
	return func(t *Tranche) { t.clock = c }
}

// WithLogger substitutes the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tranche) { t.logger = l }
}

// WithEventSink journals events to the given sink.
func WithEventSink(s EventSink) Option {
	return func(t *Tranche) { t.sink = s }
}

// WithEventIDs substitutes the event ID generator. Deterministic tests use
// a fixed generator so traces are comparable.
func WithEventIDs(g EventIDGenerator) Option {
	return func(t *Tranche) { t.ids = g }
}

// New constructs the engine for a series, wires the companion yield token's
// settlement hook, and performs the one-time recipient hand-off to the
// adapter so deposits convert into shares custodied by this instance.
func New(series Series, ad adapter.Adapter, opts ...Option) (*Tranche, error) {
	t := &Tranche{
		series:       series,
		adapter:      ad,
		clock:        SystemClock{},
		logger:       slog.Default(),
		sink:         NopSink{},
		ids:          UUIDGenerator{},
		state:        NewState(),
		account:      "tranche:" + series.ID,
		ytAccount:    "yt:" + series.ID,
		feeRecipient: series.Management,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := series.Validate(t.clock.Now()); err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, &SeriesConfigError{Field: "adapter", Message: "required"}
	}

	t.pt = token.NewLedger(series.Symbol + "-PT")
	t.yt = token.NewYieldToken(series.Symbol + "-YT")
	if err := t.yt.RegisterHook(func(from, to string, amount *big.Int) error {
		return t.UpdateUnclaimedYield(t.ytAccount, from, to, amount)
	}); err != nil {
		return nil, err
	}
	if b, ok := ad.(adapter.Binder); ok {
		if err := b.Bind(t.account); err != nil {
			return nil, fmt.Errorf("tranche: bind adapter: %w", err)
		}
	}
	return t, nil
}

// Series returns the immutable configuration. Not guarded: configuration
// never changes after construction.
func (t *Tranche) Series() Series { return t.series }

// Account returns the engine's custody identity.
func (t *Tranche) Account() string { return t.account }

// PrincipalToken returns the principal claim ledger.
func (t *Tranche) PrincipalToken() *token.Ledger { return t.pt }

// YieldClaimToken returns the companion yield token.
func (t *Tranche) YieldClaimToken() *token.YieldToken { return t.yt }

// Adapter returns the yield-source adapter.
func (t *Tranche) Adapter() adapter.Adapter { return t.adapter }

// touchScales observes the adapter's scale once and folds it into the
// persisted state machine. The fold is idempotent within an invocation,
// and the first call at or after maturity performs the one-time settlement
// transition. Returns a copy of the updated scales and the raw current
// scale.
func (t *Tranche) touchScales() (GlobalScales, *big.Int, error) {
	cscale, err := t.adapter.Scale()
	if err != nil {
		return GlobalScales{}, nil, fmt.Errorf("tranche: read scale: %w", err)
	}
	t.state.Scales.Update(cscale, t.clock.Now(), t.series.Maturity)
	return t.state.Scales.Clone(), cscale, nil
}

// matured reports whether the current instant is at or past maturity.
func (t *Tranche) matured() bool {
	return !t.clock.Now().Before(t.series.Maturity)
}

// Issue pulls underlyingAmount from caller through the adapter and mints
// equal amounts of principal and yield claim to the recipient. Any pending
// accrual the recipient already has is folded into the newly issued amount
// rather than paid out. Fails with ErrMaturityPassed at or after maturity.
func (t *Tranche) Issue(caller, to string, underlyingAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if t.paused {
		return nil, ErrPaused
	}
	if to == token.ZeroAccount || caller == token.ZeroAccount {
		return nil, ErrZeroAddress
	}
	if underlyingAmount == nil || underlyingAmount.Sign() < 0 {
		return nil, ErrZeroAmount
	}
	if t.matured() {
		return nil, ErrMaturityPassed
	}

	g, _, err := t.touchScales()
	if err != nil {
		return nil, err
	}

	// Fold the recipient's pending accrual into this issuance.
	accrued := t.state.Unclaimed(to)
	lscale := t.state.LScale(to)
	if lscale.Sign() != 0 {
		accrued.Add(accrued, computeAccruedInterest(g.Maxscale, lscale, t.yt.BalanceOf(to)))
	}

	if err := t.adapter.Underlying().Transfer(caller, t.adapter.Account(), underlyingAmount); err != nil {
		return nil, err
	}
	used, minted, err := t.adapter.PrefundedDeposit()
	if err != nil {
		return nil, fmt.Errorf("tranche: prefunded deposit: %w", err)
	}

	fee := fixed.BPSUp(minted, t.series.IssuanceFeeBPS)
	sharesUsed := new(big.Int).Add(minted, accrued)
	sharesUsed.Sub(sharesUsed, fee)
	if sharesUsed.Sign() < 0 {
		sharesUsed.SetInt64(0)
	}
	issued := fixed.MulWadDown(sharesUsed, g.Maxscale)

	t.state.SetLScale(to, g.Maxscale)
	t.state.ClearUnclaimed(to)
	t.state.AddIssuanceFees(fee)
	if err := t.pt.Mint(to, issued); err != nil {
		return nil, err
	}
	if err := t.yt.Mint(to, issued); err != nil {
		return nil, err
	}

	t.emit(EventIssue, caller, caller, to, map[string]*big.Int{
		"underlying": used,
		"shares":     minted,
		"issued":     issued,
		"fee":        fee,
	})
	t.logger.Debug("issue",
		"series", t.series.ID, "to", to,
		"underlying", used.String(), "issued", issued.String(), "fee", fee.String())
	return issued, nil
}

// Collect settles the caller's accrued yield and pays it out through the
// adapter. At or after maturity it also burns the caller's entire yield
// claim balance: yield rights end at maturity. Fails with ErrNoAccruedYield
// if the caller has never been settled and has nothing banked.
func (t *Tranche) Collect(caller string) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if t.paused {
		return nil, ErrPaused
	}
	if caller == token.ZeroAccount {
		return nil, ErrZeroAddress
	}

	lscale := t.state.LScale(caller)
	accrued := t.state.Unclaimed(caller)
	if lscale.Sign() == 0 && accrued.Sign() == 0 {
		return nil, ErrNoAccruedYield
	}

	g, _, err := t.touchScales()
	if err != nil {
		return nil, err
	}

	yBal := t.yt.BalanceOf(caller)
	if lscale.Sign() != 0 {
		accrued.Add(accrued, computeAccruedInterest(g.Maxscale, lscale, yBal))
	}
	t.state.SetLScale(caller, g.Maxscale)
	t.state.ClearUnclaimed(caller)

	if t.matured() && yBal.Sign() > 0 {
		if err := t.yt.Burn(caller, yBal); err != nil {
			return nil, err
		}
	}

	paid, err := t.payShares(accrued, caller)
	if err != nil {
		return nil, err
	}

	t.emit(EventCollect, caller, caller, caller, map[string]*big.Int{
		"shares":     accrued,
		"underlying": paid,
	})
	t.logger.Debug("collect",
		"series", t.series.ID, "caller", caller, "underlying", paid.String())
	return paid, nil
}

// Redeem burns principalAmount of principal claim from `from` and pays the
// redemption value to `to`. Callable only at or after maturity; the payout
// follows the sunny-day split (see math.go). The caller spends allowance
// when redeeming another holder's claim.
func (t *Tranche) Redeem(caller string, principalAmount *big.Int, to, from string) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	paid, _, err := t.redeemPrincipal("redeem", caller, principalAmount, to, from)
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Withdraw is the inverse of Redeem: it burns exactly enough principal
// claim to pay out at least underlyingAmount, returning the principal
// burned. Redeeming the previewed principal in the same step yields the
// same or a more favorable result.
func (t *Tranche) Withdraw(caller string, underlyingAmount *big.Int, to, from string) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if t.paused {
		return nil, ErrPaused
	}
	if underlyingAmount == nil || underlyingAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if !t.matured() {
		return nil, ErrTimestampBeforeMaturity
	}
	g, _, err := t.touchScales()
	if err != nil {
		return nil, err
	}
	principal := computePrincipalForUnderlying(g, underlyingAmount, t.series.TiltBPS)
	if principal.Sign() == 0 {
		return nil, &ZeroOutputError{Op: "withdraw", Requested: fixed.Clone(underlyingAmount)}
	}
	if _, _, err := t.redeemPrincipalSettled("withdraw", caller, principal, to, from, g); err != nil {
		return nil, err
	}
	return principal, nil
}

// redeemPrincipal validates timing and settles scales, then redeems.
func (t *Tranche) redeemPrincipal(op, caller string, principalAmount *big.Int, to, from string) (paid, shares *big.Int, err error) {
	if t.paused {
		return nil, nil, ErrPaused
	}
	if principalAmount == nil || principalAmount.Sign() <= 0 {
		return nil, nil, ErrZeroAmount
	}
	if !t.matured() {
		return nil, nil, ErrTimestampBeforeMaturity
	}
	g, _, err := t.touchScales()
	if err != nil {
		return nil, nil, err
	}
	return t.redeemPrincipalSettled(op, caller, principalAmount, to, from, g)
}

// redeemPrincipalSettled burns principal and pays the sunny-day value.
// Scales must already be settled for the current invocation.
func (t *Tranche) redeemPrincipalSettled(op, caller string, principalAmount *big.Int, to, from string, g GlobalScales) (paid, shares *big.Int, err error) {
	if to == token.ZeroAccount || from == token.ZeroAccount || caller == token.ZeroAccount {
		return nil, nil, ErrZeroAddress
	}
	shares, out := computeSharesRedeemed(g, principalAmount, t.series.TiltBPS)
	if out.Sign() == 0 {
		return nil, nil, &ZeroOutputError{Op: op, Requested: fixed.Clone(principalAmount)}
	}
	if err := t.pt.BurnFrom(caller, from, principalAmount); err != nil {
		return nil, nil, err
	}
	paid, err = t.payShares(shares, to)
	if err != nil {
		return nil, nil, err
	}
	t.emit(EventKind(op), caller, from, to, map[string]*big.Int{
		"principal":  principalAmount,
		"shares":     shares,
		"underlying": paid,
	})
	t.logger.Debug(op,
		"series", t.series.ID, "from", from, "to", to,
		"principal", principalAmount.String(), "underlying", paid.String())
	return paid, shares, nil
}

// RedeemWithClaims burns equal amounts of principal and yield claim
// together, before or after maturity. Before maturity both claims are
// destroyed together, so there is no asymmetric shortfall and no tilt
// logic; the pair exits at nominal share backing plus settled yield. After
// maturity the principal side follows the same math as Redeem. Fails with
// ErrNoAccruedYield if the holder has never been settled.
func (t *Tranche) RedeemWithClaims(caller, from, to string, claimAmount *big.Int) (*big.Int, error) {
	if err := t.guard.enter(); err != nil {
		return nil, err
	}
	defer t.guard.exit()
	if t.paused {
		return nil, ErrPaused
	}
	if to == token.ZeroAccount || from == token.ZeroAccount || caller == token.ZeroAccount {
		return nil, ErrZeroAddress
	}
	if claimAmount == nil || claimAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	lscale := t.state.LScale(from)
	if lscale.Sign() == 0 {
		return nil, ErrNoAccruedYield
	}

	g, _, err := t.touchScales()
	if err != nil {
		return nil, err
	}

	// Both burns must land together, so both balances (and allowances,
	// when redeeming on another holder's behalf) are checked up front.
	if have := t.pt.BalanceOf(from); have.Cmp(claimAmount) < 0 {
		return nil, &token.InsufficientBalanceError{Account: from, Have: have, Need: fixed.Clone(claimAmount)}
	}
	if have := t.yt.BalanceOf(from); have.Cmp(claimAmount) < 0 {
		return nil, &token.InsufficientBalanceError{Account: from, Have: have, Need: fixed.Clone(claimAmount)}
	}
	if caller != from {
		if have := t.pt.Allowance(from, caller); have.Cmp(claimAmount) < 0 {
			return nil, &token.InsufficientAllowanceError{Owner: from, Spender: caller, Have: have, Need: fixed.Clone(claimAmount)}
		}
		if have := t.yt.Allowance(from, caller); have.Cmp(claimAmount) < 0 {
			return nil, &token.InsufficientAllowanceError{Owner: from, Spender: caller, Have: have, Need: fixed.Clone(claimAmount)}
		}
	}

	accrued := t.state.Unclaimed(from)
	accrued.Add(accrued, computeAccruedInterest(g.Maxscale, lscale, t.yt.BalanceOf(from)))
	t.state.SetLScale(from, g.Maxscale)
	t.state.ClearUnclaimed(from)

	var shares *big.Int
	if t.matured() {
		shares, _ = computeSharesRedeemed(g, claimAmount, t.series.TiltBPS)
	} else {
		shares = fixed.DivWadDown(claimAmount, g.Maxscale)
	}

	if err := t.pt.BurnFrom(caller, from, claimAmount); err != nil {
		return nil, err
	}
	if err := t.yt.BurnFrom(caller, from, claimAmount); err != nil {
		return nil, err
	}

	total := new(big.Int).Add(shares, accrued)
	paid, err := t.payShares(total, to)
	if err != nil {
		return nil, err
	}

	t.emit(EventRedeemWithClaims, caller, from, to, map[string]*big.Int{
		"claims":     claimAmount,
		"shares":     shares,
		"yield":      accrued,
		"underlying": paid,
	})
	t.logger.Debug("redeem_with_claims",
		"series", t.series.ID, "from", from, "to", to,
		"claims", claimAmount.String(), "underlying", paid.String())
	return paid, nil
}

// UpdateUnclaimedYield is the settlement hook, callable exclusively by the
// companion yield token on every transfer, including zero-amount ones. It
// banks the sender's pending yield so transferred tokens carry no implicit
// claim, and initializes tracking for either party on its first touch.
func (t *Tranche) UpdateUnclaimedYield(caller, from, to string, transferAmount *big.Int) error {
	if err := t.guard.enter(); err != nil {
		return err
	}
	defer t.guard.exit()
	if t.paused {
		return ErrPaused
	}
	if caller != t.ytAccount {
		return ErrOnlyYieldToken
	}
	if from == token.ZeroAccount || to == token.ZeroAccount {
		return ErrZeroAddress
	}
	g, _, err := t.touchScales()
	if err != nil {
		return err
	}

	// A never-settled sender has nothing to bank; first touch only pins
	// its lscale.
	banked := new(big.Int)
	if lscaleFrom := t.state.LScale(from); lscaleFrom.Sign() != 0 {
		banked = computeAccruedInterest(g.Maxscale, lscaleFrom, t.yt.BalanceOf(from))
		t.state.AddUnclaimed(from, banked)
	}
	t.state.SetLScale(from, g.Maxscale)

	if to != from {
		if lscaleTo := t.state.LScale(to); lscaleTo.Sign() != 0 {
			t.state.AddUnclaimed(to, computeAccruedInterest(g.Maxscale, lscaleTo, t.yt.BalanceOf(to)))
		}
		t.state.SetLScale(to, g.Maxscale)
	}

	t.emit(EventYieldSettled, caller, from, to, map[string]*big.Int{
		"banked": banked,
		"amount": transferAmount,
	})
	return nil
}

// payShares moves shares from the engine's custody to the adapter and
// redeems them to the recipient. A zero amount pays nothing and touches
// nothing.
func (t *Tranche) payShares(shares *big.Int, to string) (*big.Int, error) {
	if shares.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := t.adapter.Target().Transfer(t.account, t.adapter.Account(), shares); err != nil {
		return nil, err
	}
	paid, _, err := t.adapter.PrefundedRedeem(to)
	if err != nil {
		return nil, fmt.Errorf("tranche: prefunded redeem: %w", err)
	}
	return paid, nil
}

// emit journals one event. Journal failures are logged, not propagated:
// the journal is an observer of the accounting state, not a participant.
func (t *Tranche) emit(kind EventKind, caller, from, to string, amt map[string]*big.Int) {
	ev := Event{
		ID:        t.ids.Generate(),
		Seq:       t.seq.Next(),
		Kind:      kind,
		Series:    t.series.ID,
		Caller:    caller,
		From:      from,
		To:        to,
		Amounts:   amounts(amt),
		Timestamp: t.clock.Now().Unix(),
	}
	if err := t.sink.Append(ev); err != nil {
		t.logger.Error("event append failed", "series", t.series.ID, "kind", string(kind), "err", err)
	}
}

// Package adapter defines the yield-source capability boundary consumed by
// the tranche engine, plus simulated implementations used by tests, the
// scenario harness and the CLI.
//
// An adapter custodies deposited underlying and issues target (share)
// tokens against it. The engine is fully adapter-agnostic: it sees only the
// current scale and the two prefunded conversion calls.
//
// Prefunded flow: the caller transfers funds to the adapter's account
// FIRST, then invokes PrefundedDeposit or PrefundedRedeem. The adapter
// converts whatever sits on its account and reports the deltas; the engine
// trusts the reported values.
package adapter

import (
	"errors"
	"math/big"

	"github.com/splitfi/tranche/internal/token"
)

var (
	// ErrRecipientAlreadyBound is returned on a second Bind call.
	ErrRecipientAlreadyBound = errors.New("adapter: recipient already bound")

	// ErrRecipientUnbound is returned when a prefunded call arrives before
	// the one-time constructor hand-off bound a recipient.
	ErrRecipientUnbound = errors.New("adapter: recipient not bound")

	// ErrNonPositiveScale is returned when an adapter would report a scale
	// of zero or below. A zero scale would make every conversion divide by
	// zero, so it is rejected at the source.
	ErrNonPositiveScale = errors.New("adapter: scale must be positive")

	// ErrInvalidBPS is returned for a basis-point parameter outside [0, 10000].
	ErrInvalidBPS = errors.New("adapter: basis points out of range")
)

// Adapter is the capability interface over one yield source.
//
// Scale reports the current exchange rate of one share into underlying as
// an 18-decimal fixed-point ratio. It may rise and fall; the engine, not
// the adapter, is responsible for tolerating decreases.
type Adapter interface {
	// Scale returns the current share -> underlying exchange rate (WAD).
	// Idempotent from the caller's perspective.
	Scale() (*big.Int, error)

	// PrefundedDeposit converts the underlying sitting on the adapter's
	// account into shares, minted to the bound recipient. Returns the
	// underlying consumed and the shares minted.
	PrefundedDeposit() (underlyingUsed, sharesMinted *big.Int, err error)

	// PrefundedRedeem burns the shares sitting on the adapter's account
	// and pays the resulting underlying to the given account. Returns the
	// underlying paid and the shares burned.
	PrefundedRedeem(to string) (underlyingPaid, sharesBurned *big.Int, err error)

	// Underlying returns the ledger of the underlying asset.
	Underlying() *token.Ledger

	// Target returns the ledger of the adapter's share token.
	Target() *token.Ledger

	// Account returns the adapter's custody identity. Callers transfer
	// funds here before a prefunded call.
	Account() string
}

// Binder is implemented by adapters that accept a one-time recipient
// hand-off at deployment. The factory binds the engine's custody account
// so PrefundedDeposit knows where to mint shares.
type Binder interface {
	Bind(recipient string) error
}

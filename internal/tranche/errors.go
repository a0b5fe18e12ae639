package tranche

import (
	"errors"
	"fmt"
	"math/big"
)

// Error taxonomy. Every failure is local and terminal: an invocation either
// fully completes or leaves no state change behind. Nothing is retried or
// recovered internally.
var (
	// ErrMaturityPassed is returned when Issue is called at or after maturity.
	ErrMaturityPassed = errors.New("tranche: maturity passed")

	// ErrTimestampBeforeMaturity is returned when Redeem or Withdraw is
	// called before maturity.
	ErrTimestampBeforeMaturity = errors.New("tranche: timestamp before maturity")

	// ErrNoAccruedYield is returned when settlement is requested for a
	// holder that has never been settled and has nothing banked.
	ErrNoAccruedYield = errors.New("tranche: no accrued yield")

	// ErrOnlyYieldToken is returned when the settlement hook entry point
	// is invoked by anything other than the companion yield token.
	ErrOnlyYieldToken = errors.New("tranche: caller is not the yield token")

	// ErrOnlyManagement is returned when a privileged operation is invoked
	// by anyone but the management identity.
	ErrOnlyManagement = errors.New("tranche: caller is not management")

	// ErrZeroAddress is returned when a party is the reserved zero identity.
	ErrZeroAddress = errors.New("tranche: zero address")

	// ErrZeroAmount is returned when an operation would move nothing but a
	// zero amount is not meaningful for it.
	ErrZeroAmount = errors.New("tranche: zero amount")

	// ErrReentrantCall is the rejection signal for a mutating entry point
	// invoked while the guard is locked.
	ErrReentrantCall = errors.New("tranche: reentrant call")

	// ErrReentrantRead is the rejection signal for a read-only entry point
	// invoked while the guard is locked. Distinct from ErrReentrantCall so
	// callers can tell a deliberate read rejection from a generic fault.
	ErrReentrantRead = errors.New("tranche: reentrant read")

	// ErrPaused is returned by mutating entry points while paused.
	ErrPaused = errors.New("tranche: paused")

	// ErrProtectedToken is returned when token recovery targets the
	// adapter's share token, which backs outstanding claims.
	ErrProtectedToken = errors.New("tranche: cannot recover protected token")
)

// SeriesConfigError reports an invalid immutable series parameter at
// construction time.
type SeriesConfigError struct {
	Field   string
	Message string
}

func (e *SeriesConfigError) Error() string {
	return fmt.Sprintf("tranche: invalid series config: %s: %s", e.Field, e.Message)
}

// IsSeriesConfigError returns true if err is a SeriesConfigError.
// Uses errors.As to handle wrapped errors.
func IsSeriesConfigError(err error) bool {
	var ce *SeriesConfigError
	return errors.As(err, &ce)
}

// ZeroOutputError reports an operation whose payout would round to zero,
// which would otherwise let a caller burn claims for nothing.
type ZeroOutputError struct {
	Op        string
	Requested *big.Int
}

func (e *ZeroOutputError) Error() string {
	return fmt.Sprintf("tranche: %s of %s produces zero output", e.Op, e.Requested)
}

// IsZeroOutput returns true if err is a ZeroOutputError.
func IsZeroOutput(err error) bool {
	var ze *ZeroOutputError
	return errors.As(err, &ze)
}

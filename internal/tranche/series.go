package tranche

import (
	"time"
)

// MaxBPSInt is the basis-point denominator for tilt and issuance fee.
const MaxBPSInt = int64(10000)

// Series is the immutable per-instance configuration. It is created once
// at deployment and never mutated.
type Series struct {
	// ID uniquely identifies this series. The factory derives it
	// deterministically from (adapter, maturity).
	ID string

	// Name and Symbol label the claim tokens for diagnostics and events.
	Name   string
	Symbol string

	// Maturity is the hard cutoff. Issuance stops at this instant;
	// principal redemption opens at it.
	Maturity time.Time

	// TiltBPS is the principal-protection weight in basis points. Zero
	// means principal claims never bear a shortfall; 10000 shifts the
	// entire shortfall onto them.
	TiltBPS int64

	// IssuanceFeeBPS is charged in shares on every issuance.
	IssuanceFeeBPS int64

	// Management is the identity authorized for privileged operations.
	Management string
}

// Validate checks the immutable parameters. The factory calls this before
// deployment; the engine constructor calls it again as a belt against
// hand-built configs.
func (s Series) Validate(now time.Time) error {
	if s.ID == "" {
		return &SeriesConfigError{Field: "id", Message: "required"}
	}
	if s.TiltBPS < 0 || s.TiltBPS > MaxBPSInt {
		return &SeriesConfigError{Field: "tilt", Message: "must be within [0, 10000]"}
	}
	if s.IssuanceFeeBPS < 0 || s.IssuanceFeeBPS > MaxBPSInt {
		return &SeriesConfigError{Field: "issuance_fee", Message: "must be within [0, 10000]"}
	}
	if !s.Maturity.After(now) {
		return &SeriesConfigError{Field: "maturity", Message: "must be in the future"}
	}
	if s.Management == "" {
		return &SeriesConfigError{Field: "management", Message: "required"}
	}
	return nil
}

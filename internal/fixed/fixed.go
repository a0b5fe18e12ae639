// Package fixed implements 18-decimal fixed-point arithmetic over big.Int.
//
// All scale values in the tranche engine are WAD ratios (1e18 == 1.0), and
// all tilt/fee parameters are basis points (10000 == 100%). Operations in
// this package never mutate their arguments and always return freshly
// allocated big.Ints, so callers can safely share inputs across calls.
//
// Rounding direction is explicit in every operation name. The engine relies
// on this: amounts paid out round down, amounts charged or burned round up,
// so rounding error always accumulates in favor of the pooled reserve.
package fixed

import "math/big"

// WAD is the fixed-point unit: 1e18 represents 1.0.
var WAD = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MaxBPS is the basis-point denominator: 10000 == 100%.
var MaxBPS = big.NewInt(10000)

var one = big.NewInt(1)

// MulDivDown returns floor(x * y / d).
// Panics if d is zero, matching big.Int division semantics.
func MulDivDown(x, y, d *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	return z.Div(z, d)
}

// MulDivUp returns ceil(x * y / d).
func MulDivUp(x, y, d *big.Int) *big.Int {
	z := new(big.Int).Mul(x, y)
	if z.Sign() == 0 {
		return z
	}
	z.Sub(z, one)
	z.Div(z, d)
	return z.Add(z, one)
}

// MulWadDown returns floor(x * y / WAD).
func MulWadDown(x, y *big.Int) *big.Int {
	return MulDivDown(x, y, WAD)
}

// MulWadUp returns ceil(x * y / WAD).
func MulWadUp(x, y *big.Int) *big.Int {
	return MulDivUp(x, y, WAD)
}

// DivWadDown returns floor(x * WAD / y).
func DivWadDown(x, y *big.Int) *big.Int {
	return MulDivDown(x, WAD, y)
}

// DivWadUp returns ceil(x * WAD / y).
func DivWadUp(x, y *big.Int) *big.Int {
	return MulDivUp(x, WAD, y)
}

// BPSDown returns floor(x * bps / 10000).
func BPSDown(x *big.Int, bps int64) *big.Int {
	return MulDivDown(x, big.NewInt(bps), MaxBPS)
}

// BPSUp returns ceil(x * bps / 10000).
func BPSUp(x *big.Int, bps int64) *big.Int {
	return MulDivUp(x, big.NewInt(bps), MaxBPS)
}

// Clone returns a fresh copy of x. Nil is cloned to zero.
func Clone(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// Min returns a copy of the smaller of x and y.
func Min(x, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return Clone(x)
	}
	return Clone(y)
}

// Max returns a copy of the larger of x and y.
func Max(x, y *big.Int) *big.Int {
	if x.Cmp(y) >= 0 {
		return Clone(x)
	}
	return Clone(y)
}

package tranche

import (
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
)

// computeAccruedInterest returns the yield accrued by a holder, in shares,
// between the holder's last settlement scale and the current maxscale.
//
// A claim balance of B underlying-nominal units was backed by B/lscale
// shares at last settlement; at maxscale the same nominal backing needs
// only B/maxscale shares. The difference is the accrued yield. If maxscale
// has not risen past lscale the accrual is zero, never negative: tracking
// the maximum rather than the raw scale is what keeps loss events from
// producing phantom yield.
func computeAccruedInterest(maxscale, lscale, yieldBalance *big.Int) *big.Int {
	if maxscale.Cmp(lscale) <= 0 || yieldBalance.Sign() == 0 {
		return new(big.Int)
	}
	atLast := fixed.DivWadDown(yieldBalance, lscale)
	atMax := fixed.DivWadDown(yieldBalance, maxscale)
	return atLast.Sub(atLast, atMax)
}

// sunnyDay reports whether the settlement scale held up against the
// historical peak, within the tilt cushion: mscale/maxscale >= 1 - tilt.
// Tilt carves that fraction of principal out as a loss buffer; only a drop
// that eats through the whole buffer flips the series to the
// not-sunny-day branch.
func sunnyDay(g GlobalScales, tiltBPS int64) bool {
	lhs := new(big.Int).Mul(g.Mscale, fixed.MaxBPS)
	rhs := new(big.Int).Mul(g.Maxscale, big.NewInt(MaxBPSInt-tiltBPS))
	return lhs.Cmp(rhs) >= 0
}

// computeSharesRedeemed converts principal into the shares owed for
// burning it at the settled scales, and the underlying those shares are
// worth at the settlement scale.
//
// Sunny day: principal redeems its protected portion (1 - tilt) at face
// value, shares = principal*(1-tilt)/mscale. With tilt zero that is full
// nominal recovery.
//
// Not sunny: the drop exceeded the tilt buffer. Principal receives its
// entire share backing, principal/maxscale, and the source loss passes
// through pro rata. With tilt zero the share count is identical to the
// flat-scale baseline, so principal holders keep their full backing and
// only yield claims are diminished.
//
// Either branch pays out at most principal/maxscale shares, which is
// exactly the backing the issuance deposited, so redemptions can never
// drain shares attributed to other holders.
func computeSharesRedeemed(g GlobalScales, principal *big.Int, tiltBPS int64) (shares, underlying *big.Int) {
	if sunnyDay(g, tiltBPS) {
		protected := fixed.BPSDown(principal, MaxBPSInt-tiltBPS)
		shares = fixed.DivWadDown(protected, g.Mscale)
	} else {
		shares = fixed.DivWadDown(principal, g.Maxscale)
	}
	underlying = fixed.MulWadDown(shares, g.Mscale)
	return shares, underlying
}

// computePrincipalForUnderlying is the inverse of computeSharesRedeemed:
// the principal that must be burned so the redeemed shares are worth at
// least the requested underlying at the settlement scale. Every rounding
// step goes up, so redeeming the returned amount in the same step pays the
// requested output or better.
//
// Returns zero when no finite principal reaches the output (tilt of 10000
// leaves principal with no sunny-day entitlement at all).
func computePrincipalForUnderlying(g GlobalScales, underlying *big.Int, tiltBPS int64) *big.Int {
	shares := fixed.DivWadUp(underlying, g.Mscale)
	if sunnyDay(g, tiltBPS) {
		oneSubTilt := MaxBPSInt - tiltBPS
		if oneSubTilt == 0 {
			return new(big.Int)
		}
		protected := fixed.MulWadUp(shares, g.Mscale)
		return fixed.MulDivUp(protected, fixed.MaxBPS, big.NewInt(oneSubTilt))
	}
	return fixed.MulWadUp(shares, g.Maxscale)
}

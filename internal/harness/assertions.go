package harness

import (
	"fmt"
	"math/big"

	"github.com/splitfi/tranche/internal/tranche"
)

// Verify evaluates the scenario's assertions against the run result.
// All failures found are returned together, not just the first.
func Verify(sc *Scenario, res *Result) []error {
	var failures []error
	for i, a := range sc.Assertions {
		if err := res.check(&a); err != nil {
			failures = append(failures, fmt.Errorf("assertions[%d] %s: %w", i, a.Type, err))
		}
	}
	return failures
}

func (r *Result) check(a *Assertion) error {
	switch a.Type {
	case AssertBalance:
		return r.checkBalance(a)
	case AssertSupplyEqual:
		pt := r.Tranche.PrincipalToken().TotalSupply()
		yt := r.Tranche.YieldClaimToken().TotalSupply()
		if pt.Cmp(yt) != 0 {
			return fmt.Errorf("principal supply %s != yield supply %s", pt, yt)
		}
		return nil
	case AssertScales:
		return r.checkScales(a)
	case AssertTraceCount:
		count := 0
		for _, ev := range r.Trace {
			if ev.Kind == tranche.EventKind(a.Kind) {
				count++
			}
		}
		if count != a.Count {
			return fmt.Errorf("kind %q appears %d times, want %d", a.Kind, count, a.Count)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (r *Result) checkBalance(a *Assertion) error {
	want, err := parseAmount(a.Amount)
	if err != nil {
		return err
	}

	var got *big.Int
	switch a.Token {
	case "pt":
		got = r.Tranche.PrincipalToken().BalanceOf(a.Account)
	case "yt":
		got = r.Tranche.YieldClaimToken().BalanceOf(a.Account)
	case "underlying":
		got = r.Underlying.BalanceOf(a.Account)
	case "target":
		got = r.Target.BalanceOf(a.Account)
	default:
		return fmt.Errorf("unknown token %q", a.Token)
	}

	if got.Cmp(want) != 0 {
		return fmt.Errorf("%s balance of %s is %s, want %s", a.Token, a.Account, got, want)
	}
	return nil
}

func (r *Result) checkScales(a *Assertion) error {
	g, err := r.Tranche.GetGlobalScales()
	if err != nil {
		return err
	}
	if a.Mscale != "" {
		want, err := parseAmount(a.Mscale)
		if err != nil {
			return err
		}
		if g.Mscale.Cmp(want) != 0 {
			return fmt.Errorf("mscale is %s, want %s", g.Mscale, want)
		}
	}
	if a.Maxscale != "" {
		want, err := parseAmount(a.Maxscale)
		if err != nil {
			return err
		}
		if g.Maxscale.Cmp(want) != 0 {
			return fmt.Errorf("maxscale is %s, want %s", g.Maxscale, want)
		}
	}
	return nil
}

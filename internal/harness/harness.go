// Package harness executes YAML scenarios against a fully assembled
// engine: mock adapter, frozen clock, fixed event IDs and an in-memory
// journal. The same scenario always produces the identical trace, which is
// what makes golden comparison meaningful.
package harness

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/splitfi/tranche/internal/adapter"
	"github.com/splitfi/tranche/internal/testutil"
	"github.com/splitfi/tranche/internal/token"
	"github.com/splitfi/tranche/internal/tranche"
)

// Result is the world after a scenario run.
type Result struct {
	Scenario   *Scenario
	Tranche    *tranche.Tranche
	Adapter    *adapter.MockAdapter
	Underlying *token.Ledger
	Target     *token.Ledger
	Clock      *testutil.FrozenClock
	Trace      []tranche.Event
}

// Run loads the world from the scenario and executes its flow. A step
// failing without expect_error, or succeeding with one, aborts the run.
func Run(sc *Scenario) (*Result, error) {
	start, err := sc.StartTime()
	if err != nil {
		return nil, err
	}

	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	mock, err := adapter.NewMock(und, tgt, "adapter:"+sc.Name, wadOne())
	if err != nil {
		return nil, fmt.Errorf("build adapter: %w", err)
	}

	clock := testutil.NewFrozenClock(start)
	sink := &tranche.MemorySink{}
	tr, err := tranche.New(tranche.Series{
		ID:             sc.Name,
		Name:           sc.Description,
		Symbol:         sc.Series.Symbol,
		Maturity:       start.Add(time.Duration(sc.Series.MaturityDays) * 24 * time.Hour),
		TiltBPS:        sc.Series.TiltBPS,
		IssuanceFeeBPS: sc.Series.IssuanceFeeBPS,
		Management:     sc.Series.Management,
	}, mock,
		tranche.WithClock(clock),
		tranche.WithEventSink(sink),
		tranche.WithEventIDs(&testutil.FixedIDGenerator{}),
	)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	for account, amount := range sc.Accounts {
		v, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", account, err)
		}
		if err := und.Mint(account, v); err != nil {
			return nil, fmt.Errorf("fund %s: %w", account, err)
		}
	}

	res := &Result{
		Scenario:   sc,
		Tranche:    tr,
		Adapter:    mock,
		Underlying: und,
		Target:     tgt,
		Clock:      clock,
	}

	for i, step := range sc.Flow {
		err := res.apply(&step)
		if step.ExpectError != "" {
			if err == nil {
				return nil, fmt.Errorf("flow[%d] %s: expected error containing %q, got success",
					i, step.Op, step.ExpectError)
			}
			if !strings.Contains(err.Error(), step.ExpectError) {
				return nil, fmt.Errorf("flow[%d] %s: error %q does not contain %q",
					i, step.Op, err, step.ExpectError)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
	}

	res.Trace = sink.Events
	return res, nil
}

// apply executes one step. Caller stands in for From and To when those are
// not given.
func (r *Result) apply(step *FlowStep) error {
	caller := step.Caller
	if caller == "" {
		caller = step.From
	}
	from := step.From
	if from == "" {
		from = caller
	}
	to := step.To
	if to == "" {
		to = caller
	}

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		r.Clock.Advance(d)
		return nil

	case OpSetScale:
		scale, err := parseAmount(step.Scale)
		if err != nil {
			return err
		}
		return r.Adapter.SetScale(scale)

	case OpIssue:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.Tranche.Issue(caller, to, amount)
		return err

	case OpCollect:
		_, err := r.Tranche.Collect(caller)
		return err

	case OpRedeem:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.Tranche.Redeem(caller, amount, to, from)
		return err

	case OpWithdraw:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.Tranche.Withdraw(caller, amount, to, from)
		return err

	case OpRedeemWithClaims:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		_, err = r.Tranche.RedeemWithClaims(caller, from, to, amount)
		return err

	case OpTransferYield:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return err
		}
		return r.Tranche.YieldClaimToken().Transfer(from, to, amount)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", s)
	}
	return v, nil
}

func wadOne() *big.Int {
	return new(big.Int).SetUint64(1e18)
}

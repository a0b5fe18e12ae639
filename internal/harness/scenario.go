package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one deterministic conformance run: a series configuration, a
// set of funded accounts, a flow of operations against the engine, and
// assertions over the final state and the event trace.
type Scenario struct {
	// Name uniquely identifies the scenario. It doubles as the series ID
	// and the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start pins the clock's initial instant (RFC 3339). Defaults to
	// 2024-01-01T00:00:00Z when empty.
	Start string `yaml:"start,omitempty"`

	// Series configures the engine under test.
	Series SeriesConfig `yaml:"series"`

	// Accounts maps account identities to initial underlying balances
	// (base-10 integer strings).
	Accounts map[string]string `yaml:"accounts"`

	// Flow is the operation sequence.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// SeriesConfig is the scenario's series, with maturity expressed relative
// to the start instant so scenarios stay valid forever.
type SeriesConfig struct {
	Symbol         string `yaml:"symbol"`
	MaturityDays   int    `yaml:"maturity_days"`
	TiltBPS        int64  `yaml:"tilt_bps"`
	IssuanceFeeBPS int64  `yaml:"issuance_fee_bps"`
	Management     string `yaml:"management"`
}

// FlowStep is one operation. Op selects the operation; the remaining
// fields parameterize it. From and To default to Caller when empty.
type FlowStep struct {
	// Op is one of: advance, set_scale, issue, collect, redeem, withdraw,
	// redeem_with_claims, transfer_yield.
	Op string `yaml:"op"`

	Caller string `yaml:"caller,omitempty"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to,omitempty"`

	// Amount is the operation's amount in base-10 integer form.
	Amount string `yaml:"amount,omitempty"`

	// Scale is the new scale for set_scale.
	Scale string `yaml:"scale,omitempty"`

	// Duration moves the clock for advance (Go duration syntax).
	Duration string `yaml:"duration,omitempty"`

	// ExpectError asserts the step fails and the error message contains
	// this substring. A step without it must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Flow operation constants.
const (
	OpAdvance          = "advance"
	OpSetScale         = "set_scale"
	OpIssue            = "issue"
	OpCollect          = "collect"
	OpRedeem           = "redeem"
	OpWithdraw         = "withdraw"
	OpRedeemWithClaims = "redeem_with_claims"
	OpTransferYield    = "transfer_yield"
)

// Assertion validates final state or the trace.
type Assertion struct {
	// Type is one of: balance, supply_equal, scales, trace_count.
	Type string `yaml:"type"`

	// Token selects the ledger for balance: pt, yt, underlying, target.
	Token string `yaml:"token,omitempty"`

	// Account is the balance holder.
	Account string `yaml:"account,omitempty"`

	// Amount is the expected balance.
	Amount string `yaml:"amount,omitempty"`

	// Mscale and Maxscale are the expected scales for scales.
	Mscale   string `yaml:"mscale,omitempty"`
	Maxscale string `yaml:"maxscale,omitempty"`

	// Kind and Count pin how often an event kind appears for trace_count.
	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance     = "balance"
	AssertSupplyEqual = "supply_equal"
	AssertScales      = "scales"
	AssertTraceCount  = "trace_count"
)

// defaultStart is the clock instant scenarios begin at unless they pin
// their own.
var defaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// StartTime resolves the scenario's initial clock instant.
func (s *Scenario) StartTime() (time.Time, error) {
	if s.Start == "" {
		return defaultStart, nil
	}
	at, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start: %w", err)
	}
	return at.UTC(), nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Series.Symbol == "" {
		return fmt.Errorf("series.symbol is required")
	}
	if s.Series.MaturityDays <= 0 {
		return fmt.Errorf("series.maturity_days must be positive")
	}
	if s.Series.Management == "" {
		return fmt.Errorf("series.management is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if _, err := s.StartTime(); err != nil {
		return err
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *FlowStep) error {
	switch step.Op {
	case OpAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			return fmt.Errorf("flow[%d]: invalid duration %q", index, step.Duration)
		}
	case OpSetScale:
		if step.Scale == "" {
			return fmt.Errorf("flow[%d]: scale is required for set_scale", index)
		}
	case OpIssue, OpRedeem, OpWithdraw, OpRedeemWithClaims, OpTransferYield:
		if step.Amount == "" {
			return fmt.Errorf("flow[%d]: amount is required for %s", index, step.Op)
		}
		if step.Caller == "" && step.From == "" {
			return fmt.Errorf("flow[%d]: caller is required for %s", index, step.Op)
		}
	case OpCollect:
		if step.Caller == "" {
			return fmt.Errorf("flow[%d]: caller is required for collect", index)
		}
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertBalance:
		if a.Token == "" || a.Account == "" || a.Amount == "" {
			return fmt.Errorf("assertions[%d]: balance needs token, account and amount", index)
		}
	case AssertSupplyEqual:
		// No parameters.
	case AssertScales:
		if a.Mscale == "" && a.Maxscale == "" {
			return fmt.Errorf("assertions[%d]: scales needs mscale or maxscale", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

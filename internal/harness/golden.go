package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/splitfi/tranche/internal/tranche"
)

// TraceSnapshot is what a golden file holds: the scenario name and its
// full event trace. Amount maps serialize with sorted keys, so the bytes
// are deterministic.
type TraceSnapshot struct {
	Scenario string          `json:"scenario"`
	Trace    []tranche.Event `json:"trace"`
}

// RunWithGolden executes the scenario, checks its assertions and compares
// the trace against testdata/golden/{name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) error {
	t.Helper()

	res, err := Run(sc)
	if err != nil {
		return err
	}
	if failures := Verify(sc, res); len(failures) > 0 {
		return fmt.Errorf("assertions failed: %v", failures)
	}

	data, err := marshalSnapshot(TraceSnapshot{Scenario: sc.Name, Trace: res.Trace})
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}

func marshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	return append(data, '\n'), nil
}

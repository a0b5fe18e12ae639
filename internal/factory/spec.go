package factory

import (
	"fmt"

	"github.com/splitfi/tranche/internal/adapter"
	"github.com/splitfi/tranche/internal/seriesspec"
	"github.com/splitfi/tranche/internal/token"
	"github.com/splitfi/tranche/internal/tranche"
)

// BuildAdapter constructs the yield-source adapter a resolved definition
// names. Vault adapters accrue against the given clock; mock adapters
// ignore it.
func BuildAdapter(def seriesspec.Adapter, underlying, target *token.Ledger, clock adapter.Clock) (adapter.Adapter, error) {
	switch def.Kind {
	case seriesspec.AdapterMock:
		return adapter.NewMock(underlying, target, def.Account, def.InitialScale)
	case seriesspec.AdapterVault:
		return adapter.NewVault(underlying, target, def.Account, def.InitialScale, def.RatePerSec, clock)
	default:
		return nil, fmt.Errorf("factory: unknown adapter kind %q", def.Kind)
	}
}

// DeployFromSpec builds the adapter a validated definition describes and
// deploys the series through Deploy. Engine options pass through unchanged.
func (f *Factory) DeployFromSpec(sc seriesspec.Series, underlying, target *token.Ledger, clock adapter.Clock, opts ...tranche.Option) (*tranche.Tranche, error) {
	ad, err := BuildAdapter(sc.Adapter, underlying, target, clock)
	if err != nil {
		return nil, err
	}
	return f.Deploy(Config{
		Name:           sc.Name,
		Symbol:         sc.Symbol,
		Maturity:       sc.Maturity,
		TiltBPS:        sc.TiltBPS,
		IssuanceFeeBPS: sc.IssuanceFeeBPS,
		Management:     sc.Management,
	}, ad, opts...)
}

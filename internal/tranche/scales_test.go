package tranche

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/splitfi/tranche/internal/fixed"
)

var (
	epoch    = time.Unix(1_704_067_200, 0) // 2024-01-01T00:00:00Z
	maturity = epoch.Add(30 * 24 * time.Hour)
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixed.WAD)
}

// wadF converts a value expressed in hundredths (150 -> 1.50) to WAD.
func wadF(hundredths int64) *big.Int {
	w := new(big.Int).Mul(big.NewInt(hundredths), fixed.WAD)
	return w.Div(w, big.NewInt(100))
}

// TestGlobalScales_MaxscaleMonotonic tests that maxscale ratchets up and
// never follows the raw scale down.
func TestGlobalScales_MaxscaleMonotonic(t *testing.T) {
	g := NewGlobalScales()

	g.Update(wad(1), epoch, maturity)
	assert.Equal(t, wad(1), g.Maxscale)

	g.Update(wadF(150), epoch.Add(time.Hour), maturity)
	assert.Equal(t, wadF(150), g.Maxscale)

	// Loss event: raw scale falls, maxscale holds.
	g.Update(wadF(120), epoch.Add(2*time.Hour), maturity)
	assert.Equal(t, wadF(150), g.Maxscale)
}

// TestGlobalScales_NoSettlementBeforeMaturity tests mscale stays zero
// while time is on the near side of maturity.
func TestGlobalScales_NoSettlementBeforeMaturity(t *testing.T) {
	g := NewGlobalScales()
	g.Update(wad(1), maturity.Add(-time.Second), maturity)
	assert.False(t, g.Settled())
	assert.Equal(t, 0, g.Mscale.Sign())
}

// TestGlobalScales_SettlesExactlyAtMaturity tests the boundary instant.
func TestGlobalScales_SettlesExactlyAtMaturity(t *testing.T) {
	g := NewGlobalScales()
	g.Update(wadF(130), maturity, maturity)
	assert.True(t, g.Settled())
	assert.Equal(t, wadF(130), g.Mscale)
}

// TestGlobalScales_SettlementFreeze tests mscale is immutable once set,
// no matter how the adapter's scale keeps moving.
func TestGlobalScales_SettlementFreeze(t *testing.T) {
	g := NewGlobalScales()
	g.Update(wadF(130), maturity, maturity)

	g.Update(wad(2), maturity.Add(time.Hour), maturity)
	assert.Equal(t, wadF(130), g.Mscale)
	assert.Equal(t, wad(2), g.Maxscale)

	g.Update(wadF(50), maturity.Add(2*time.Hour), maturity)
	assert.Equal(t, wadF(130), g.Mscale)
}

// TestGlobalScales_UpdateIdempotent tests that folding the same
// observation twice changes nothing.
func TestGlobalScales_UpdateIdempotent(t *testing.T) {
	g := NewGlobalScales()
	g.Update(wadF(150), maturity, maturity)
	snapshot := g.Clone()

	g.Update(wadF(150), maturity, maturity)
	assert.Equal(t, snapshot.Mscale, g.Mscale)
	assert.Equal(t, snapshot.Maxscale, g.Maxscale)
}

// TestGlobalScales_CloneIndependent tests clones do not alias.
func TestGlobalScales_CloneIndependent(t *testing.T) {
	g := NewGlobalScales()
	g.Update(wad(1), epoch, maturity)

	c := g.Clone()
	c.Maxscale.SetInt64(7)
	assert.Equal(t, wad(1), g.Maxscale)
}

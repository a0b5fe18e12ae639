package fixed

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wad converts a whole-number amount to WAD fixed point.
func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), WAD)
}

// TestMulDivDown_Floors verifies truncation toward zero.
func TestMulDivDown_Floors(t *testing.T) {
	got := MulDivDown(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	assert.Equal(t, int64(10), got.Int64()) // 21/2 = 10.5 -> 10
}

// TestMulDivUp_Ceils verifies rounding away from zero on any remainder.
func TestMulDivUp_Ceils(t *testing.T) {
	got := MulDivUp(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	assert.Equal(t, int64(11), got.Int64())

	// Exact division must not over-round.
	got = MulDivUp(big.NewInt(6), big.NewInt(3), big.NewInt(2))
	assert.Equal(t, int64(9), got.Int64())
}

// TestMulDivUp_Zero verifies ceil of zero stays zero.
func TestMulDivUp_Zero(t *testing.T) {
	got := MulDivUp(big.NewInt(0), big.NewInt(3), big.NewInt(2))
	assert.Equal(t, int64(0), got.Int64())
}

// TestWadRoundTrip checks MulWadDown(DivWadDown(x, s), s) <= x for a
// spread of scales, i.e. the down/down round trip never manufactures value.
func TestWadRoundTrip(t *testing.T) {
	scales := []*big.Int{
		wad(1),
		new(big.Int).Add(wad(1), big.NewInt(1)),
		big.NewInt(1e9),
		new(big.Int).Mul(wad(3), big.NewInt(7)),
	}
	x := wad(12345)
	for _, s := range scales {
		shares := DivWadDown(x, s)
		back := MulWadDown(shares, s)
		assert.LessOrEqual(t, back.Cmp(x), 0, "scale %s", s)
	}
}

// TestBPS verifies basis-point helpers at the boundaries.
func TestBPS(t *testing.T) {
	x := big.NewInt(10000)
	assert.Equal(t, int64(0), BPSDown(x, 0).Int64())
	assert.Equal(t, int64(10000), BPSDown(x, 10000).Int64())
	assert.Equal(t, int64(100), BPSDown(x, 100).Int64())

	// 1 bps of 10001 is 1.0001, charged up to 2.
	assert.Equal(t, int64(2), BPSUp(big.NewInt(10001), 1).Int64())
}

// TestNoArgumentMutation verifies operations leave inputs untouched.
func TestNoArgumentMutation(t *testing.T) {
	x := big.NewInt(100)
	y := big.NewInt(3)
	d := big.NewInt(7)
	_ = MulDivDown(x, y, d)
	_ = MulDivUp(x, y, d)
	require.Equal(t, int64(100), x.Int64())
	require.Equal(t, int64(3), y.Int64())
	require.Equal(t, int64(7), d.Int64())
}

// TestClone verifies nil handling and independence.
func TestClone(t *testing.T) {
	assert.Equal(t, int64(0), Clone(nil).Int64())

	x := big.NewInt(5)
	c := Clone(x)
	c.Add(c, big.NewInt(1))
	assert.Equal(t, int64(5), x.Int64())
}

// TestMinMax covers ordering and copy semantics.
func TestMinMax(t *testing.T) {
	a, b := big.NewInt(2), big.NewInt(9)
	assert.Equal(t, int64(2), Min(a, b).Int64())
	assert.Equal(t, int64(9), Max(a, b).Int64())

	m := Min(a, b)
	m.SetInt64(0)
	assert.Equal(t, int64(2), a.Int64())
}

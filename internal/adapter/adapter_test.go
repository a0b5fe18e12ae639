package adapter

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitfi/tranche/internal/fixed"
	"github.com/splitfi/tranche/internal/token"
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixed.WAD)
}

// halfWad returns n + 0.5 in WAD.
func halfWad(n int64) *big.Int {
	half := new(big.Int).Div(fixed.WAD, big.NewInt(2))
	return new(big.Int).Add(wad(n), half)
}

func newMockWorld(t *testing.T, scale *big.Int) (*MockAdapter, *token.Ledger, *token.Ledger) {
	t.Helper()
	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	m, err := NewMock(und, tgt, "adapter:mock", scale)
	require.NoError(t, err)
	require.NoError(t, m.Bind("tranche:test"))
	return m, und, tgt
}

// TestMock_PrefundedDeposit tests conversion of a prefunded balance into
// shares at the current scale.
func TestMock_PrefundedDeposit(t *testing.T) {
	m, und, tgt := newMockWorld(t, wad(1))
	require.NoError(t, und.Mint("alice", wad(100)))
	require.NoError(t, und.Transfer("alice", m.Account(), wad(100)))

	used, shares, err := m.PrefundedDeposit()
	require.NoError(t, err)
	assert.Equal(t, wad(100), used)
	assert.Equal(t, wad(100), shares)
	assert.Equal(t, wad(100), tgt.BalanceOf("tranche:test"))
	// Custody account drained into the reserve.
	assert.Equal(t, int64(0), und.BalanceOf(m.Account()).Int64())
}

// TestMock_DepositAtHigherScale tests share count shrinking as scale rises.
func TestMock_DepositAtHigherScale(t *testing.T) {
	m, und, _ := newMockWorld(t, wad(2))
	require.NoError(t, und.Mint(m.Account(), wad(100)))

	_, shares, err := m.PrefundedDeposit()
	require.NoError(t, err)
	assert.Equal(t, wad(50), shares)
}

// TestMock_DepositUnbound tests the constructor hand-off requirement.
func TestMock_DepositUnbound(t *testing.T) {
	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	m, err := NewMock(und, tgt, "adapter:mock", wad(1))
	require.NoError(t, err)

	_, _, err = m.PrefundedDeposit()
	assert.ErrorIs(t, err, ErrRecipientUnbound)
}

// TestMock_BindOnce tests duplicate binding rejection.
func TestMock_BindOnce(t *testing.T) {
	m, _, _ := newMockWorld(t, wad(1))
	assert.ErrorIs(t, m.Bind("other"), ErrRecipientAlreadyBound)
}

// TestMock_PrefundedRedeem_MintsYieldGap tests that redemption above the
// reserve mints the accrued yield.
func TestMock_PrefundedRedeem_MintsYieldGap(t *testing.T) {
	m, und, tgt := newMockWorld(t, wad(1))
	require.NoError(t, und.Mint(m.Account(), wad(100)))
	_, shares, err := m.PrefundedDeposit()
	require.NoError(t, err)

	// Yield: scale rises to 1.5, shares now worth 150.
	require.NoError(t, m.SetScale(halfWad(1)))
	require.NoError(t, tgt.Transfer("tranche:test", m.Account(), shares))

	paid, burned, err := m.PrefundedRedeem("alice")
	require.NoError(t, err)
	assert.Equal(t, wad(150), paid)
	assert.Equal(t, wad(100), burned)
	assert.Equal(t, wad(150), und.BalanceOf("alice"))
	assert.Equal(t, int64(0), tgt.TotalSupply().Int64())
}

// TestMock_PrefundedRedeem_Empty tests the zero-shares no-op.
func TestMock_PrefundedRedeem_Empty(t *testing.T) {
	m, _, _ := newMockWorld(t, wad(1))
	paid, burned, err := m.PrefundedRedeem("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.Int64())
	assert.Equal(t, int64(0), burned.Int64())
}

// TestMock_SetScaleRejectsZero tests scale validation at the source.
func TestMock_SetScaleRejectsZero(t *testing.T) {
	m, _, _ := newMockWorld(t, wad(1))
	assert.ErrorIs(t, m.SetScale(big.NewInt(0)), ErrNonPositiveScale)
	assert.ErrorIs(t, m.SetScale(nil), ErrNonPositiveScale)
}

// stubClock is a minimal settable clock for vault tests.
type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestVault_ScaleAccrues tests linear accrual against the injected clock.
func TestVault_ScaleAccrues(t *testing.T) {
	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	clock := &stubClock{now: time.Unix(1_700_000_000, 0)}

	// 0.01 WAD per second.
	rate := new(big.Int).Div(fixed.WAD, big.NewInt(100))
	v, err := NewVault(und, tgt, "adapter:vault", wad(1), rate, clock)
	require.NoError(t, err)

	s, err := v.Scale()
	require.NoError(t, err)
	assert.Equal(t, wad(1), s)

	clock.advance(50 * time.Second)
	s, err = v.Scale()
	require.NoError(t, err)
	assert.Equal(t, halfWad(1), s) // 1 + 50*0.01 = 1.5

	// Same instant, same answer.
	again, err := v.Scale()
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

// TestVault_Slash tests a permanent loss event cutting the scale.
func TestVault_Slash(t *testing.T) {
	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	clock := &stubClock{now: time.Unix(1_700_000_000, 0)}
	v, err := NewVault(und, tgt, "adapter:vault", wad(2), nil, clock)
	require.NoError(t, err)

	require.NoError(t, v.Slash(5000)) // -50%
	s, err := v.Scale()
	require.NoError(t, err)
	assert.Equal(t, wad(1), s)

	// Cut survives time passing.
	clock.advance(time.Hour)
	s, err = v.Scale()
	require.NoError(t, err)
	assert.Equal(t, wad(1), s)
}

// TestVault_ScaleFloor tests that slashing cannot push the scale to zero.
func TestVault_ScaleFloor(t *testing.T) {
	und := token.NewLedger("UND")
	tgt := token.NewLedger("TGT")
	clock := &stubClock{now: time.Unix(1_700_000_000, 0)}
	v, err := NewVault(und, tgt, "adapter:vault", big.NewInt(10), nil, clock)
	require.NoError(t, err)

	require.NoError(t, v.Slash(10000))
	s, err := v.Scale()
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Int64())
}

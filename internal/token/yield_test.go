package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookRecorder captures settlement hook invocations.
type hookRecorder struct {
	calls []hookCall
	fail  error
}

type hookCall struct {
	from, to string
	amount   *big.Int
}

func (h *hookRecorder) hook(from, to string, amount *big.Int) error {
	h.calls = append(h.calls, hookCall{from: from, to: to, amount: new(big.Int).Set(amount)})
	return h.fail
}

// TestYieldToken_TransferInvokesHook tests the hook fires before the
// balance moves, with pre-transfer parties.
func TestYieldToken_TransferInvokesHook(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(100)))

	require.NoError(t, yt.Transfer("alice", "bob", big.NewInt(40)))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "alice", rec.calls[0].from)
	assert.Equal(t, "bob", rec.calls[0].to)
	assert.Equal(t, int64(40), rec.calls[0].amount.Int64())
	assert.Equal(t, int64(60), yt.BalanceOf("alice").Int64())
	assert.Equal(t, int64(40), yt.BalanceOf("bob").Int64())
}

// TestYieldToken_ZeroAmountStillSettles tests that a zero-value transfer
// still triggers settlement.
func TestYieldToken_ZeroAmountStillSettles(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(10)))

	require.NoError(t, yt.Transfer("alice", "bob", big.NewInt(0)))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, int64(0), rec.calls[0].amount.Int64())
}

// TestYieldToken_HookFailureBlocksTransfer tests that a failing settlement
// leaves balances untouched.
func TestYieldToken_HookFailureBlocksTransfer(t *testing.T) {
	yt := NewYieldToken("YT")
	boom := errors.New("settlement failed")
	rec := &hookRecorder{fail: boom}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(100)))

	err := yt.Transfer("alice", "bob", big.NewInt(40))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(100), yt.BalanceOf("alice").Int64())
	assert.Equal(t, int64(0), yt.BalanceOf("bob").Int64())
}

// TestYieldToken_InsufficientBalanceSkipsHook tests that a transfer the
// ledger would reject never reaches settlement, so a failed transfer has
// no side effects at all.
func TestYieldToken_InsufficientBalanceSkipsHook(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(10)))

	err := yt.Transfer("alice", "bob", big.NewInt(40))
	assert.True(t, IsInsufficientBalance(err))
	assert.Empty(t, rec.calls)
}

// TestYieldToken_InsufficientAllowanceSkipsHook tests the same for the
// allowance path.
func TestYieldToken_InsufficientAllowanceSkipsHook(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(100)))
	require.NoError(t, yt.Approve("alice", "spender", big.NewInt(10)))

	err := yt.TransferFrom("spender", "alice", "bob", big.NewInt(40))
	assert.True(t, IsInsufficientAllowance(err))
	assert.Empty(t, rec.calls)
}

// TestYieldToken_MintBurnSkipHook tests that engine-driven mint/burn do
// not re-enter the settlement hook.
func TestYieldToken_MintBurnSkipHook(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))

	require.NoError(t, yt.Mint("alice", big.NewInt(100)))
	require.NoError(t, yt.Burn("alice", big.NewInt(100)))
	assert.Empty(t, rec.calls)
}

// TestYieldToken_RegisterHookOnce tests the one-shot registration contract.
func TestYieldToken_RegisterHookOnce(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	assert.ErrorIs(t, yt.RegisterHook(rec.hook), ErrHookAlreadySet)
}

// TestYieldToken_TransferFromSettlesOwner tests settlement uses the owner,
// not the spender.
func TestYieldToken_TransferFromSettlesOwner(t *testing.T) {
	yt := NewYieldToken("YT")
	rec := &hookRecorder{}
	require.NoError(t, yt.RegisterHook(rec.hook))
	require.NoError(t, yt.Mint("alice", big.NewInt(100)))
	require.NoError(t, yt.Approve("alice", "spender", big.NewInt(50)))

	require.NoError(t, yt.TransferFrom("spender", "alice", "bob", big.NewInt(50)))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "alice", rec.calls[0].from)
	assert.Equal(t, "bob", rec.calls[0].to)
}

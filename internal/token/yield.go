package token

import (
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
)

// SettlementHook is invoked before a yield-token transfer moves balances.
//
// The tranche engine registers its UpdateUnclaimedYield here. The hook sees
// the pre-transfer balances, so yield accrued by the sender up to this
// moment is banked to the sender and never travels with the tokens.
//
// Only transfers fire the hook. Mint and Burn are engine-internal moves
// whose settlement already happened inside the calling operation, so they
// bypass it. A zero amount still triggers the hook: settlement is about
// time passing, not about value moving.
type SettlementHook func(from, to string, amount *big.Int) error

// YieldToken is the companion claim token. It is a Ledger whose every
// movement is preceded by a settlement callback into the core engine.
//
// The hook is one-shot: it is registered exactly once, by the engine that
// owns this token, during engine construction.
type YieldToken struct {
	ledger *Ledger
	hook   SettlementHook
}

// NewYieldToken creates a yield token with no hook registered. Movements
// before RegisterHook bypass settlement; the engine registers the hook
// before the token is ever reachable, so this window is construction-only.
func NewYieldToken(symbol string) *YieldToken {
	return &YieldToken{ledger: NewLedger(symbol)}
}

// RegisterHook installs the settlement hook. Returns ErrHookAlreadySet on
// a second call.
func (y *YieldToken) RegisterHook(hook SettlementHook) error {
	if y.hook != nil {
		return ErrHookAlreadySet
	}
	y.hook = hook
	return nil
}

// Symbol returns the token's diagnostic symbol.
func (y *YieldToken) Symbol() string { return y.ledger.Symbol() }

// BalanceOf returns a copy of the account's balance.
func (y *YieldToken) BalanceOf(account string) *big.Int {
	return y.ledger.BalanceOf(account)
}

// TotalSupply returns a copy of the total supply.
func (y *YieldToken) TotalSupply() *big.Int {
	return y.ledger.TotalSupply()
}

// Allowance returns the spender's remaining allowance from owner.
func (y *YieldToken) Allowance(owner, spender string) *big.Int {
	return y.ledger.Allowance(owner, spender)
}

// Approve sets spender's allowance. No settlement: allowances do not move
// balances.
func (y *YieldToken) Approve(owner, spender string, amount *big.Int) error {
	return y.ledger.Approve(owner, spender, amount)
}

// Transfer settles both parties, then moves the balance. The balance is
// checked before settlement runs, so a transfer that cannot complete
// leaves the engine's settlement state untouched.
func (y *YieldToken) Transfer(from, to string, amount *big.Int) error {
	if from == ZeroAccount || to == ZeroAccount {
		return ErrZeroAccount
	}
	if err := y.checkBalance(from, amount); err != nil {
		return err
	}
	if err := y.settle(from, to, amount); err != nil {
		return err
	}
	return y.ledger.Transfer(from, to, amount)
}

// TransferFrom settles the owner and recipient, then moves the balance
// consuming allowance. Allowance and balance are checked before
// settlement, same as Transfer.
func (y *YieldToken) TransferFrom(spender, owner, to string, amount *big.Int) error {
	if spender == ZeroAccount || owner == ZeroAccount || to == ZeroAccount {
		return ErrZeroAccount
	}
	if spender != owner {
		if have := y.ledger.Allowance(owner, spender); have.Cmp(amount) < 0 {
			return &InsufficientAllowanceError{
				Owner:   owner,
				Spender: spender,
				Have:    have,
				Need:    fixed.Clone(amount),
			}
		}
	}
	if err := y.checkBalance(owner, amount); err != nil {
		return err
	}
	if err := y.settle(owner, to, amount); err != nil {
		return err
	}
	return y.ledger.TransferFrom(spender, owner, to, amount)
}

func (y *YieldToken) checkBalance(from string, amount *big.Int) error {
	if have := y.ledger.BalanceOf(from); have.Cmp(amount) < 0 {
		return &InsufficientBalanceError{
			Account: from,
			Have:    have,
			Need:    fixed.Clone(amount),
		}
	}
	return nil
}

// Mint is called by the core engine at issuance. The engine has already
// settled the recipient as part of issuance, so minting does not invoke
// the hook again.
func (y *YieldToken) Mint(account string, amount *big.Int) error {
	return y.ledger.Mint(account, amount)
}

// Burn is called by the core engine at collection and combined redemption.
// As with Mint, settlement has already happened inside the engine.
func (y *YieldToken) Burn(account string, amount *big.Int) error {
	return y.ledger.Burn(account, amount)
}

// BurnFrom burns owner's balance on behalf of spender, consuming
// allowance. Settlement has already happened inside the engine.
func (y *YieldToken) BurnFrom(spender, owner string, amount *big.Int) error {
	return y.ledger.BurnFrom(spender, owner, amount)
}

func (y *YieldToken) settle(from, to string, amount *big.Int) error {
	if y.hook == nil {
		return nil
	}
	return y.hook(from, to, amount)
}

// Package token implements the fungible balance tables used by the tranche
// engine: a plain ledger for the underlying asset, the target (share) token
// and the principal claim, plus the companion yield token whose transfers
// settle accrued yield through a hook before any balance moves.
//
// Accounts are opaque string identities. The zero identity "" is reserved
// and rejected everywhere, mirroring zero-address checks.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
)

// ZeroAccount is the reserved empty identity. Mints come "from" it and
// burns go "to" it in event terms, but it can never hold a balance.
const ZeroAccount = ""

var (
	// ErrZeroAccount is returned when a party is the reserved zero identity.
	ErrZeroAccount = errors.New("token: zero account")

	// ErrHookAlreadySet is returned on a second RegisterHook call.
	ErrHookAlreadySet = errors.New("token: settlement hook already registered")
)

// InsufficientBalanceError reports a transfer or burn exceeding a balance.
type InsufficientBalanceError struct {
	Account string
	Have    *big.Int
	Need    *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("token: insufficient balance for %s: have %s, need %s", e.Account, e.Have, e.Need)
}

// InsufficientAllowanceError reports a TransferFrom exceeding an allowance.
type InsufficientAllowanceError struct {
	Owner   string
	Spender string
	Have    *big.Int
	Need    *big.Int
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("token: insufficient allowance from %s to %s: have %s, need %s",
		e.Owner, e.Spender, e.Have, e.Need)
}

// IsInsufficientBalance returns true if err is an InsufficientBalanceError.
// Uses errors.As to handle wrapped errors.
func IsInsufficientBalance(err error) bool {
	var be *InsufficientBalanceError
	return errors.As(err, &be)
}

// IsInsufficientAllowance returns true if err is an InsufficientAllowanceError.
func IsInsufficientAllowance(err error) bool {
	var ae *InsufficientAllowanceError
	return errors.As(err, &ae)
}

// Ledger is a fungible balance table with allowances.
//
// Ledger is NOT safe for concurrent use. The engine's reentrancy guard
// serializes all access; standalone use must provide its own discipline.
type Ledger struct {
	symbol      string
	balances    map[string]*big.Int
	allowances  map[string]map[string]*big.Int
	totalSupply *big.Int
}

// NewLedger creates an empty ledger. The symbol is used only for
// diagnostics and events.
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:      symbol,
		balances:    make(map[string]*big.Int),
		allowances:  make(map[string]map[string]*big.Int),
		totalSupply: new(big.Int),
	}
}

// Symbol returns the ledger's diagnostic symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// BalanceOf returns a copy of the account's balance.
func (l *Ledger) BalanceOf(account string) *big.Int {
	if b, ok := l.balances[account]; ok {
		return fixed.Clone(b)
	}
	return new(big.Int)
}

// TotalSupply returns a copy of the total supply.
func (l *Ledger) TotalSupply() *big.Int {
	return fixed.Clone(l.totalSupply)
}

// Allowance returns a copy of the spender's remaining allowance from owner.
func (l *Ledger) Allowance(owner, spender string) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return fixed.Clone(a)
		}
	}
	return new(big.Int)
}

// Mint creates amount new units for account.
func (l *Ledger) Mint(account string, amount *big.Int) error {
	if account == ZeroAccount {
		return ErrZeroAccount
	}
	l.credit(account, amount)
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// Burn destroys amount units held by account.
func (l *Ledger) Burn(account string, amount *big.Int) error {
	if account == ZeroAccount {
		return ErrZeroAccount
	}
	if err := l.debit(account, amount); err != nil {
		return err
	}
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

// BurnFrom destroys amount units held by owner on behalf of spender,
// consuming allowance unless the owner is burning its own balance.
func (l *Ledger) BurnFrom(spender, owner string, amount *big.Int) error {
	if spender == ZeroAccount {
		return ErrZeroAccount
	}
	if spender != owner {
		if err := l.spendAllowance(owner, spender, amount); err != nil {
			return err
		}
	}
	return l.Burn(owner, amount)
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to string, amount *big.Int) error {
	if from == ZeroAccount || to == ZeroAccount {
		return ErrZeroAccount
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(owner, spender string, amount *big.Int) error {
	if owner == ZeroAccount || spender == ZeroAccount {
		return ErrZeroAccount
	}
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[string]*big.Int)
		l.allowances[owner] = m
	}
	m[spender] = fixed.Clone(amount)
	return nil
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming allowance. Owner moving its own funds bypasses the allowance
// table, matching the usual self-spend convention.
func (l *Ledger) TransferFrom(spender, owner, to string, amount *big.Int) error {
	if spender == ZeroAccount {
		return ErrZeroAccount
	}
	if spender != owner {
		if err := l.spendAllowance(owner, spender, amount); err != nil {
			return err
		}
	}
	return l.Transfer(owner, to, amount)
}

func (l *Ledger) spendAllowance(owner, spender string, amount *big.Int) error {
	have := new(big.Int)
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			have = a
		}
	}
	if have.Cmp(amount) < 0 {
		return &InsufficientAllowanceError{
			Owner:   owner,
			Spender: spender,
			Have:    fixed.Clone(have),
			Need:    fixed.Clone(amount),
		}
	}
	have.Sub(have, amount)
	return nil
}

func (l *Ledger) credit(account string, amount *big.Int) {
	b, ok := l.balances[account]
	if !ok {
		b = new(big.Int)
		l.balances[account] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) debit(account string, amount *big.Int) error {
	b, ok := l.balances[account]
	if !ok || b.Cmp(amount) < 0 {
		have := new(big.Int)
		if ok {
			have = fixed.Clone(b)
		}
		return &InsufficientBalanceError{
			Account: account,
			Have:    have,
			Need:    fixed.Clone(amount),
		}
	}
	b.Sub(b, amount)
	return nil
}

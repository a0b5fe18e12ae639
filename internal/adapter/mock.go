package adapter

import (
	"math/big"

	"github.com/splitfi/tranche/internal/fixed"
	"github.com/splitfi/tranche/internal/token"
)

// MockAdapter is a yield source whose scale is set directly by the test or
// scenario driving it. Deposits are held in an internal reserve; on
// redemption, any gap between the reserve and the amount owed at the
// current scale is minted, which is exactly how yield enters a simulation.
type MockAdapter struct {
	custody

	scale *big.Int
}

// NewMock creates a mock adapter over the given ledgers with an initial
// scale. The account parameter is the adapter's custody identity.
func NewMock(underlying, target *token.Ledger, account string, initialScale *big.Int) (*MockAdapter, error) {
	if initialScale == nil || initialScale.Sign() <= 0 {
		return nil, ErrNonPositiveScale
	}
	m := &MockAdapter{scale: fixed.Clone(initialScale)}
	m.custody = custody{
		underlying: underlying,
		target:     target,
		account:    account,
		reserve:    account + ":reserve",
	}
	m.custody.scaleFn = m.Scale
	return m, nil
}

// Scale returns the current exchange rate.
func (m *MockAdapter) Scale() (*big.Int, error) {
	return fixed.Clone(m.scale), nil
}

// SetScale moves the exchange rate. Rejects non-positive values.
func (m *MockAdapter) SetScale(scale *big.Int) error {
	if scale == nil || scale.Sign() <= 0 {
		return ErrNonPositiveScale
	}
	m.scale = fixed.Clone(scale)
	return nil
}

// custody implements the shared prefunded-deposit/redeem mechanics over a
// pair of ledgers. Concrete adapters embed it and provide scaleFn.
type custody struct {
	underlying *token.Ledger
	target     *token.Ledger
	account    string
	reserve    string
	recipient  string
	scaleFn    func() (*big.Int, error)
}

// Bind performs the one-time recipient hand-off.
func (c *custody) Bind(recipient string) error {
	if c.recipient != "" {
		return ErrRecipientAlreadyBound
	}
	if recipient == token.ZeroAccount {
		return token.ErrZeroAccount
	}
	c.recipient = recipient
	return nil
}

// Underlying returns the underlying ledger.
func (c *custody) Underlying() *token.Ledger { return c.underlying }

// Target returns the share ledger.
func (c *custody) Target() *token.Ledger { return c.target }

// Account returns the custody identity.
func (c *custody) Account() string { return c.account }

// PrefundedDeposit absorbs the underlying on the custody account into the
// reserve and mints shares to the bound recipient at the current scale.
func (c *custody) PrefundedDeposit() (*big.Int, *big.Int, error) {
	if c.recipient == "" {
		return nil, nil, ErrRecipientUnbound
	}
	scale, err := c.scaleFn()
	if err != nil {
		return nil, nil, err
	}
	used := c.underlying.BalanceOf(c.account)
	if used.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}
	if err := c.underlying.Transfer(c.account, c.reserve, used); err != nil {
		return nil, nil, err
	}
	shares := fixed.DivWadDown(used, scale)
	if err := c.target.Mint(c.recipient, shares); err != nil {
		return nil, nil, err
	}
	return used, shares, nil
}

// PrefundedRedeem burns the shares on the custody account and pays
// underlying to the given account at the current scale. The reserve covers
// what it can; the remainder is minted as realized yield.
func (c *custody) PrefundedRedeem(to string) (*big.Int, *big.Int, error) {
	if to == token.ZeroAccount {
		return nil, nil, token.ErrZeroAccount
	}
	scale, err := c.scaleFn()
	if err != nil {
		return nil, nil, err
	}
	shares := c.target.BalanceOf(c.account)
	if shares.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}
	if err := c.target.Burn(c.account, shares); err != nil {
		return nil, nil, err
	}
	paid := fixed.MulWadDown(shares, scale)
	fromReserve := fixed.Min(paid, c.underlying.BalanceOf(c.reserve))
	if fromReserve.Sign() > 0 {
		if err := c.underlying.Transfer(c.reserve, to, fromReserve); err != nil {
			return nil, nil, err
		}
	}
	if gap := new(big.Int).Sub(paid, fromReserve); gap.Sign() > 0 {
		if err := c.underlying.Mint(to, gap); err != nil {
			return nil, nil, err
		}
	}
	return paid, shares, nil
}

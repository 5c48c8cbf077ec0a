// Package money wraps decimal.Decimal values carrying a currency, used for
// the human-readable report output produced by the CLI. The ingest and
// storage path works directly on decimal.Decimal (see internal/quote) since
// every stored value is implicitly in the exchange's single currency; Price
// exists only where a currency-aware string needs to be rendered.
package money

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Price is a currency-tagged decimal amount.
type Price struct {
	value decimal.Decimal
	cur   string
}

// P constructs a Price from a decimal value and an ISO currency code.
func P(value decimal.Decimal, currency string) Price { return Price{value: value, cur: currency} }

func (p Price) currency() money.Currency {
	return *money.New(0, p.cur).Currency()
}

// String formats the price using the currency's usual formatting rules.
func (p Price) String() string {
	cur := p.currency()
	shifted := p.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(shifted.IntPart())
}

// Decimal exposes the underlying amount.
func (p Price) Decimal() decimal.Decimal { return p.value }

// Currency returns the ISO currency code.
func (p Price) Currency() string { return p.cur }

// Mul scales the price by a plain quantity (e.g. quote close * traded volume).
func (p Price) Mul(q decimal.Decimal) Price { return Price{value: p.value.Mul(q), cur: p.cur} }

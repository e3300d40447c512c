package decimal

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used by Format when no currency is given
const DefaultCurrency = money.USD

// Money represents a monetary amount with proper financial precision
type Money struct {
	decimal.Decimal
}

// NewMoney creates a new Money instance from a float64
func NewMoney(value float64) Money {
	return Money{decimal.NewFromFloat(value)}
}

// NewMoneyFromDecimal creates a new Money instance from a decimal.Decimal
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// NewMoneyFromString creates a new Money instance from a string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// Round rounds the money amount to cents
func (m Money) Round() Money {
	return Money{m.Decimal.Round(2)}
}

func (m Money) Add(other Money) Money { return Money{m.Decimal.Add(other.Decimal)} }
func (m Money) Sub(other Money) Money { return Money{m.Decimal.Sub(other.Decimal)} }

// Mul multiplies by a decimal factor
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{m.Decimal.Mul(factor)}
}

// Min returns the minimum of two Money amounts
func Min(a, b Money) Money {
	if a.LessThan(b.Decimal) {
		return a
	}
	return b
}

// Max returns the maximum of two Money amounts
func Max(a, b Money) Money {
	if a.GreaterThan(b.Decimal) {
		return a
	}
	return b
}

// Zero returns a zero Money amount
func Zero() Money {
	return Money{decimal.Zero}
}

// String returns the amount with two decimal places and no symbol
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// Format renders the amount in DefaultCurrency, e.g. "$1,234.56"
func (m Money) Format() string {
	return m.FormatIn(DefaultCurrency)
}

// FormatIn renders the amount with the symbol, grouping and fraction digits
// of the ISO 4217 currency code. Unknown codes fall back to DefaultCurrency.
func (m Money) FormatIn(code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(DefaultCurrency)
	}
	minor := m.Decimal.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatDecimal formats a raw decimal in DefaultCurrency
func FormatDecimal(d decimal.Decimal) string {
	return Money{d}.Format()
}

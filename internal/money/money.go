// Package money converts between shopspring decimals, Postgres NUMERIC values
// and the fixed two-place strings used on the wire.
package money

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount (NUMERIC(12,2)).
const Scale = 2

var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount is the largest value a NUMERIC(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// MaxUnitPrice caps dish prices so a hundred units at the ceiling still fit
// in an order total.
var MaxUnitPrice = decimal.RequireFromString("99999999.99")

// Parse reads a decimal amount from user input. Floats are never involved:
// the string is parsed directly into a fixed-point decimal. Amounts beyond
// MaxAmount in either direction are rejected.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Exponent() < -Scale && !d.Equal(d.Round(Scale)) {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePositive is Parse restricted to amounts > 0.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FromNumeric converts a NUMERIC column value. NULL becomes zero.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	s, ok := val.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ToNumeric converts a decimal to a NUMERIC parameter rounded to Scale places.
func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(Scale))
	return n
}

// String formats a NUMERIC for JSON responses.
func String(n pgtype.Numeric) string {
	return FromNumeric(n).StringFixed(Scale)
}

// LineTotal is quantity × unit price.
func LineTotal(quantity int32, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity))
}

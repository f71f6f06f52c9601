package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount of Ghanaian cedis expressed as an integer count of
// pesewas. Keeping arithmetic on integers avoids the rounding drift a
// float representation would accumulate across totals and fees.
type Money int64

// Zero is the additive identity.
const Zero Money = 0

var minorFactor = decimal.NewFromInt(100)

// ErrNegativeAmount rejects amounts below zero anywhere in the core.
var ErrNegativeAmount = fmt.Errorf("money amount cannot be negative")

// FromMinorUnits builds a Money from a pesewa count.
func FromMinorUnits(v int64) (Money, error) {
	if v < 0 {
		return 0, ErrNegativeAmount
	}
	return Money(v), nil
}

// Parse converts a decimal string ("20.50") into Money. It is intended
// for the API boundary only; internal arithmetic never touches strings.
func Parse(raw string) (Money, error) {
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid money amount %q: %w", raw, err)
	}
	if dec.IsNegative() {
		return 0, ErrNegativeAmount
	}
	minor := dec.Mul(minorFactor)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("money amount %q has sub-pesewa precision", raw)
	}
	return Money(minor.IntPart()), nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return m + other
}

// MulQty scales the amount by a positive quantity.
func (m Money) MulQty(qty int) (Money, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	return m * Money(qty), nil
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, 1 if m > other.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m == 0
}

// MinorUnits exposes the raw pesewa count for persistence.
func (m Money) MinorUnits() int64 {
	return int64(m)
}

// Decimal converts to a two-place decimal for display serialization.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(minorFactor)
}

// String renders the amount as a fixed two-place decimal ("20.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Package types provides the numeric types used for stock and money.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity is an amount of stock expressed in base units.
// Stored as NUMERIC(18,4).
type Quantity = decimal.Decimal

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

const (
	// LineScale is the precision of per-line tax and totals.
	LineScale int32 = 4
	// MoneyScale is the precision of invoice-level totals.
	MoneyScale int32 = 2
)

// Zero returns a zero decimal.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// MustDecimal parses a decimal literal, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundHalfUp rounds to places, halves away from zero (2.345 -> 2.35, -2.345 -> -2.35).
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Percent returns base * rate / 100 without rounding.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(decimal.NewFromInt(100))
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// IsMultipleOf reports whether q is an integral multiple of step.
// A non-positive step accepts any quantity.
func IsMultipleOf(q, step decimal.Decimal) bool {
	if !step.IsPositive() {
		return true
	}
	return q.Mod(step).IsZero()
}

// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors: the register
// accumulates many small line amounts and binary floats drift.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundToUnit rounds v to the nearest multiple of unit (round half up).
// Cash amounts round to 0.10, electronic amounts to 0.01.
func RoundToUnit(v, unit Money) Money {
	if unit.IsZero() {
		return v
	}
	return v.Div(unit).Round(0).Mul(unit)
}

// Quantity is a count of base (smallest) stock units.
// Tiered cart quantities are converted to base units by multiplying with the
// tier's conversion factor before they ever touch stock.
type Quantity int64

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

// Money converts the quantity to a decimal for price arithmetic.
func (q Quantity) Money() Money {
	return decimal.NewFromInt(int64(q))
}

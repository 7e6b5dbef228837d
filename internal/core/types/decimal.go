// Package types provides common type aliases and numeric utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity represents a stock quantity with full precision.
// Uses decimal.Decimal to avoid floating-point drift when quantities are
// scaled by ratios derived from independently entered values.
type Quantity = decimal.Decimal

// Money represents a monetary value (unit costs, amounts) with full precision.
type Money = decimal.Decimal

const (
	// QuantityScale is the number of fractional digits kept for quantities.
	// Matches Postgres NUMERIC(19,6) semantics.
	QuantityScale int32 = 6

	// MoneyScale is the number of fractional digits kept for monetary values.
	// Matches Postgres NUMERIC(19,4) semantics.
	MoneyScale int32 = 4
)

// NewQuantityFromString parses a decimal string into a Quantity.
// This is the preferred constructor for externally supplied values.
func NewQuantityFromString(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}

// MustQuantity parses a decimal string, panicking on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewQuantityFromInt creates a Quantity from an integer unit count.
func NewQuantityFromInt(n int64) Quantity {
	return decimal.NewFromInt(n)
}

// NewMoneyFromString parses a decimal string into a Money value.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney parses a decimal string, panicking on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns the zero decimal value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// RoundQuantity rounds a quantity to the configured quantity scale.
// All quantity arithmetic results pass through this before persistence.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityScale)
}

// RoundMoney rounds a monetary value to the configured money scale.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

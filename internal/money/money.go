// Package money holds the fixed-point helpers shared by the ledger and the price calculator.
// Amounts are shopspring decimals; binary floats never touch money.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MaxDigits and Places mirror the DECIMAL(30, 2) money columns.
	MaxDigits = 30
	Places    = 2
)

var (
	ErrNotPositive   = errors.New("amount must be positive")
	ErrTooManyPlaces = errors.New("amount has more than 2 decimal places")
	ErrTooManyDigits = errors.New("amount has more than 30 digits")
)

// Parse reads a decimal string and checks that it fits the money columns.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if err := Validate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Validate rejects values that cannot be stored exactly in DECIMAL(30, 2).
func Validate(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Places)) {
		return ErrTooManyPlaces
	}
	// digits to the left of the point plus the fixed scale
	intDigits := len(d.Abs().Truncate(0).String())
	if intDigits+Places > MaxDigits {
		return ErrTooManyDigits
	}
	return nil
}

// ValidatePositive is Validate plus a strict > 0 check.
func ValidatePositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNotPositive
	}
	return Validate(d)
}

func Add(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }

func Sub(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) }

// Mul multiplies by a plain scalar such as a tax rate or an item count.
func Mul(a, factor decimal.Decimal) decimal.Decimal { return a.Mul(factor) }

// Display renders d with two places, halves rounded away from zero.
func Display(d decimal.Decimal) string {
	return d.Round(Places).StringFixed(Places)
}

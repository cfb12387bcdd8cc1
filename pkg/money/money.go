// Package money holds the fixed-point helpers shared by cart and checkout.
// Amounts are shopspring decimals kept at two places; they are never floats.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const Places = 2

var ErrTooManyDecimals = errors.New("amount has more than two decimal places")

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// LineTotal is quantity x unit price, rounded to two places.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ToMinorUnits converts 12.34 to 1234. The amount must already be at most two places.
func ToMinorUnits(d decimal.Decimal) (int64, error) {
	if !d.Equal(Round(d)) {
		return 0, ErrTooManyDecimals
	}
	return d.Mul(hundred).IntPart(), nil
}

// FromMinorUnits converts 1234 to 12.34.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -Places)
}

// Validate rejects negative amounts and amounts with sub-cent precision.
func Validate(d decimal.Decimal) error {
	if d.IsNegative() {
		return errors.New("amount must not be negative")
	}
	if !d.Equal(Round(d)) {
		return ErrTooManyDecimals
	}
	return nil
}

// Amount marshals to a JSON string with exactly two places ("10.00", not "10").
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + decimal.Decimal(a).StringFixed(Places) + `"`), nil
}

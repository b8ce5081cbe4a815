// Package money converts rupee amounts to and from the payment gateway's minor unit.
package money

import (
	"github.com/shopspring/decimal"
)

// MinorUnitsPerMajor is the paise-per-rupee factor.
const MinorUnitsPerMajor = 100

var hundred = decimal.NewFromInt(MinorUnitsPerMajor)

// ToMinor converts a rupee amount to paise, rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinor converts paise back to rupees.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders an amount with two decimals.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ClampZero returns zero for negative amounts.
func ClampZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

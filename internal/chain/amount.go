package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalAmount parses a positive decimal amount string into the smallest
// unit with the given decimal places. Digits beyond the unit's precision are
// rounded half up, so "0.0000000005" SOL becomes 1 lamport.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmountErr
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, invalidAmountErr
	}

	units := d.Shift(int32(decimalPlaces)).Round(0) //nolint:gosec // G115: decimal places are small chain constants
	if units.Sign() <= 0 {
		return nil, invalidAmountErr
	}

	return units.BigInt(), nil
}

// FormatDecimalAmount converts a smallest-unit amount to a human-readable string.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimalPlaces)).String() //nolint:gosec // G115: decimal places are small chain constants
}

// NormalizeUnits converts a value reported in a sub-unit into the chain's
// display unit by shifting it left by shift places.
func NormalizeUnits(value decimal.Decimal, shift int) decimal.Decimal {
	if shift == 0 {
		return value
	}
	return value.Shift(-int32(shift)) //nolint:gosec // G115: shift is a small chain constant
}

// AmountsEqual reports whether two decimal amounts differ by less than tolerance.
func AmountsEqual(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

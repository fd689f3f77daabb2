package output

import (
	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// usdPlaces is how many cents digits fiat values show.
const usdPlaces = 2

// Amount renders a balance with at most the chain's decimals and no
// trailing zeros, followed by the symbol.
func Amount(id chain.ID, v decimal.Decimal) string {
	return v.Truncate(int32(id.Decimals())).String() + " " + id.Symbol() //nolint:gosec // decimals are small constants
}

// USD renders a fiat value, e.g. "$1,234.50". A nil value renders as "-".
func USD(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	s := v.Abs().StringFixed(usdPlaces)
	intPart, frac := s[:len(s)-usdPlaces-1], s[len(s)-usdPlaces:]

	var grouped []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, c)
	}

	sign := ""
	if v.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(grouped) + "." + frac
}

// Percent renders a change like "+2.35%".
func Percent(v decimal.Decimal) string {
	s := v.StringFixed(usdPlaces) + "%"
	if v.IsPositive() {
		return "+" + s
	}
	return s
}

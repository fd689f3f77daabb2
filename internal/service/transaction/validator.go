package transaction

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// sendMaxTolerance is how close an amount must be to the balance to count
// as the whole balance.
//
//nolint:gochecknoglobals // Immutable constant
var sendMaxTolerance = decimal.New(1, -8)

// IsAmountAll reports whether amount asks for the whole balance.
func IsAmountAll(amount string) bool {
	a := strings.TrimSpace(amount)
	return strings.EqualFold(a, "all") || strings.EqualFold(a, "max")
}

// parsedAmount is a validated amount in the chain's smallest unit.
type parsedAmount struct {
	units   *big.Int
	sendMax bool
}

// parseAmount validates amountStr against an optional known balance, both in
// display units. An amount within sendMaxTolerance of the balance on an EVM
// chain becomes send-max so the fee is taken out of it.
func parseAmount(id chain.ID, amountStr, balanceStr string) (parsedAmount, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return parsedAmount{}, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "an amount is required")
	}

	var (
		balance    decimal.Decimal
		hasBalance bool
	)
	if b := strings.TrimSpace(balanceStr); b != "" {
		d, err := decimal.NewFromString(b)
		if err != nil || d.IsNegative() {
			return parsedAmount{}, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"balance": b})
		}
		balance, hasBalance = d, true
	}

	if IsAmountAll(amountStr) {
		if !hasBalance {
			return parsedAmount{sendMax: true}, nil
		}
		if !balance.IsPositive() {
			return parsedAmount{}, walleterr.ErrZeroBalance
		}
		return parsedAmount{units: balance.Shift(int32(id.Decimals())).Round(0).BigInt(), sendMax: true}, nil //nolint:gosec // G115: decimals are small chain constants
	}

	units, err := chain.ParseDecimalAmount(amountStr, id.Decimals(), walleterr.ErrInvalidAmount)
	if err != nil {
		return parsedAmount{}, walleterr.WithDetails(err, map[string]string{"amount": amountStr})
	}
	if !hasBalance {
		return parsedAmount{units: units}, nil
	}

	amount, _ := decimal.NewFromString(amountStr)
	equal := chain.AmountsEqual(amount, balance, sendMaxTolerance)
	if amount.GreaterThan(balance) && !equal {
		return parsedAmount{}, walleterr.WithDetails(walleterr.ErrAmountExceedsBalance, map[string]string{
			"amount":  amount.String(),
			"balance": balance.String(),
			"symbol":  id.Symbol(),
		})
	}
	return parsedAmount{units: units, sendMax: equal && id.IsEVM()}, nil
}

// formatUnits renders a smallest-unit string in display units. Empty or
// unparseable input gives "".
func formatUnits(units string, decimals int) string {
	n, ok := new(big.Int).SetString(units, 10)
	if !ok {
		return ""
	}
	return chain.FormatDecimalAmount(n, decimals)
}

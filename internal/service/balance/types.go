package balance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// Quote is one address's balance in display units, with optional USD data.
type Quote struct {
	Balance decimal.Decimal  `json:"balance"`
	USD     *decimal.Decimal `json:"usd,omitempty"`
	Price   *decimal.Decimal `json:"price,omitempty"`

	// TRC20Tokens is the USDT held by a Tron address.
	TRC20Tokens *decimal.Decimal `json:"trc20_tokens,omitempty"`
}

// Result is the outcome for one chain: a quote or an error, never both.
type Result struct {
	Chain   chain.ID `json:"chain"`
	Address string   `json:"address"`
	Quote   *Quote   `json:"quote,omitempty"`
	Err     error    `json:"-"`
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil && r.Quote != nil
}

// Source answers balance queries for one address on one chain.
type Source interface {
	Quote(ctx context.Context, id chain.ID, address string) (*Quote, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

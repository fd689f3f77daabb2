package balance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// OnChain reads balances straight from each chain's node. It has no USD data.
type OnChain struct {
	readers map[chain.ID]chain.BalanceReader
}

// NewOnChain creates a source from per-chain readers.
func NewOnChain(readers map[chain.ID]chain.BalanceReader) *OnChain {
	return &OnChain{readers: readers}
}

// Quote implements Source.
func (o *OnChain) Quote(ctx context.Context, id chain.ID, address string) (*Quote, error) {
	r, ok := o.readers[id]
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": id.String()})
	}
	units, err := r.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return &Quote{Balance: decimal.NewFromBigInt(units, -int32(id.Decimals()))}, nil //nolint:gosec // G115: decimals are small chain constants
}

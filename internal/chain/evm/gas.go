package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// GasSpeed represents the transaction speed preference.
type GasSpeed string

const (
	// GasSpeedSlow uses lower gas price for cheaper, slower transactions.
	GasSpeedSlow GasSpeed = "slow"
	// GasSpeedMedium uses the node's suggested gas price.
	GasSpeedMedium GasSpeed = "medium"
	// GasSpeedFast uses higher gas price for faster confirmation.
	GasSpeedFast GasSpeed = "fast"

	// GasLimitTransfer is the gas used by a plain value transfer.
	GasLimitTransfer uint64 = 21000

	slowPercent = 80
	fastPercent = 120
)

// ParseGasSpeed parses a string into a GasSpeed. Empty means medium.
func ParseGasSpeed(s string) (GasSpeed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slow":
		return GasSpeedSlow, nil
	case "", "medium":
		return GasSpeedMedium, nil
	case "fast":
		return GasSpeedFast, nil
	default:
		return "", walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{
			"speed":   s,
			"allowed": "slow, medium, or fast",
		})
	}
}

// GasEstimate contains gas price and limit for a transaction.
type GasEstimate struct {
	GasPrice *big.Int // Price per gas unit in wei
	GasLimit uint64   // Maximum gas units
}

// Fee returns GasPrice * GasLimit.
func (g GasEstimate) Fee() *big.Int {
	return new(big.Int).Mul(g.GasPrice, new(big.Int).SetUint64(g.GasLimit))
}

// adjustGasPrice scales the suggested price for the requested speed.
func adjustGasPrice(suggested *big.Int, speed GasSpeed) *big.Int {
	switch speed {
	case GasSpeedSlow:
		return percentOf(suggested, slowPercent)
	case GasSpeedFast:
		return percentOf(suggested, fastPercent)
	case GasSpeedMedium:
		return new(big.Int).Set(suggested)
	default:
		return new(big.Int).Set(suggested)
	}
}

func percentOf(n *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(n, big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}

// estimateGas prices a transfer. The limit comes from eth_estimateGas and
// falls back to 21000 when the node cannot estimate, which it often cannot
// for a send-max whose value equals the whole balance.
func (s *Signer) estimateGas(ctx context.Context, msg CallMsg) (*GasEstimate, error) {
	suggested, err := chain.RetryWithConfig(ctx, s.retry, s.client.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	limit, err := chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (uint64, error) {
		return s.client.EstimateGas(ctx, msg)
	})
	if err != nil || limit == 0 {
		if err != nil {
			s.log.Debug("gas estimate failed on %s, using %d: %v", s.network.Chain, GasLimitTransfer, err)
		}
		limit = GasLimitTransfer
	}

	return &GasEstimate{
		GasPrice: adjustGasPrice(suggested, s.speed),
		GasLimit: limit,
	}, nil
}

// FormatGasPrice formats a gas price in wei as Gwei with two decimals.
func FormatGasPrice(weiPrice *big.Int) string {
	if weiPrice == nil {
		return "0 Gwei"
	}

	gwei := new(big.Float).SetInt(weiPrice)
	gwei.Quo(gwei, new(big.Float).SetInt64(1_000_000_000))
	return fmt.Sprintf("%.2f Gwei", gwei)
}

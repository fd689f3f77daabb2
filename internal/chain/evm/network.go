// Package evm signs and broadcasts native transfers on the EVM chains.
// ETH, BNB, AVAX, BASE and POL share one key; only the network differs.
package evm

import (
	"math/big"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Network is one EVM chain's endpoint and EIP-155 chain id.
type Network struct {
	Chain   chain.ID
	RPCURL  string
	ChainID int64
}

// BigChainID returns the chain id as a big.Int, or nil when unset.
func (n Network) BigChainID() *big.Int {
	if n.ChainID <= 0 {
		return nil
	}
	return big.NewInt(n.ChainID)
}

// DefaultNetworks returns the public endpoints used when no override is configured.
func DefaultNetworks() map[chain.ID]Network {
	return map[chain.ID]Network{
		chain.ETH:  {Chain: chain.ETH, RPCURL: "https://ethereum-rpc.publicnode.com", ChainID: 1},
		chain.BNB:  {Chain: chain.BNB, RPCURL: "https://bsc-dataseed.binance.org", ChainID: 56},
		chain.AVAX: {Chain: chain.AVAX, RPCURL: "https://api.avax.network/ext/bc/C/rpc", ChainID: 43114},
		chain.BASE: {Chain: chain.BASE, RPCURL: "https://mainnet.base.org", ChainID: 8453},
		chain.POL:  {Chain: chain.POL, RPCURL: "https://polygon-rpc.com", ChainID: 137},
	}
}

// NetworkFor returns the default network of an EVM chain.
func NetworkFor(id chain.ID) (Network, error) {
	n, ok := DefaultNetworks()[id]
	if !ok {
		return Network{}, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{
			"chain":  id.String(),
			"family": "evm",
		})
	}
	return n, nil
}

package evm

import (
	"strings"
	"sync"
)

// NonceManager tracks the next nonce per address so back-to-back sends do
// not reuse a nonce before the first transaction reaches the mempool.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[string]uint64 // lowercased address -> one past the highest used
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[string]uint64),
	}
}

// Next returns the higher of the node's pending nonce and the locally
// tracked one, then advances the local counter.
func (nm *NonceManager) Next(address string, rpcNonce uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	key := strings.ToLower(address)
	nonce := rpcNonce
	if local, ok := nm.nonces[key]; ok && local > rpcNonce {
		nonce = local
	}
	nm.nonces[key] = nonce + 1

	return nonce
}

// Reset forgets the local nonce for an address, e.g. after a rejected broadcast.
func (nm *NonceManager) Reset(address string) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, strings.ToLower(address))
}

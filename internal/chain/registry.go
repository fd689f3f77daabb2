package chain

import (
	"sync"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Registry maps each chain variant to its signer. Adding a chain means
// registering one more variant, not editing a dispatch switch.
type Registry struct {
	mu      sync.RWMutex
	signers map[ID]Signer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{signers: make(map[ID]Signer)}
}

// Register adds or replaces the signer for id.
func (r *Registry) Register(id ID, s Signer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signers[id] = s
}

// Signer returns the signer for id, or ErrUnsupportedChain.
func (r *Registry) Signer(id ID) (Signer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.signers[id]
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{
			"chain": id.String(),
		})
	}
	return s, nil
}

// IDs returns the registered chains in display order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	ids := make([]ID, 0, len(r.signers))
	for id := range r.signers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	SortIDs(ids)
	return ids
}

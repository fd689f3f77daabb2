package vaultcrypto

import (
	"crypto/rand"
	"io"
)

// Reader is the randomness source for nonces and credential ids.
// Tests may replace it; production code must leave it as crypto/rand.
//
//nolint:gochecknoglobals // Package-level RNG is required for testability
var Reader io.Reader = rand.Reader

// RandomBytes generates n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

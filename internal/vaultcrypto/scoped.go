package vaultcrypto

import (
	"sync"
	"time"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultSecretTTL bounds how long a decrypted mnemonic may stay in memory.
const DefaultSecretTTL = 30 * time.Second

// ScopedSecret holds plaintext that is only reachable inside Use and is
// erased when its TTL fires or Destroy is called, whichever comes first.
// A timer that fires during Use waits for Use to return before erasing.
type ScopedSecret struct {
	mu    sync.Mutex
	buf   *SecureBytes
	timer *time.Timer
}

// NewScopedSecret moves data into a scoped secret. data is zeroed.
// A non-positive ttl disables the timer; the caller must then call Destroy.
func NewScopedSecret(data []byte, ttl time.Duration) *ScopedSecret {
	s := &ScopedSecret{buf: SecureBytesFromSlice(data)}
	if ttl > 0 {
		s.timer = time.AfterFunc(ttl, s.Destroy)
	}
	return s
}

// Use runs fn with the plaintext. The slice must not be retained after fn
// returns, and fn must not call Destroy. Returns ErrSecretExpired once the
// secret has been erased.
func (s *ScopedSecret) Use(fn func(secret []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return walleterr.ErrSecretExpired
	}
	return fn(s.buf.Bytes())
}

// Destroy erases the plaintext. Safe to call multiple times and concurrently with the timer.
func (s *ScopedSecret) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.buf != nil {
		s.buf.Destroy()
		s.buf = nil
	}
}

// Alive reports whether the plaintext is still held.
func (s *ScopedSecret) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf != nil
}

// String never reveals the secret.
func (s *ScopedSecret) String() string {
	return "[redacted]"
}

// GoString never reveals the secret, even with %#v.
func (s *ScopedSecret) GoString() string {
	return "vaultcrypto.ScopedSecret{[redacted]}"
}

package vaultcrypto

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultWorkFactor is the scrypt log2(N) used for new blobs, matching age's default.
const DefaultWorkFactor = 18

// Cipher seals a secret under a password into a storable string.
type Cipher interface {
	Seal(plaintext []byte, password string) (string, error)
	// Open returns ErrWrongPassword when the password does not fit the blob
	// or the blob is not decodable.
	Open(blob, password string) ([]byte, error)
}

// AgeCipher encrypts with an age scrypt recipient and armors the result.
type AgeCipher struct {
	// WorkFactor is scrypt's log2(N) for Seal. Zero means DefaultWorkFactor.
	WorkFactor int
}

// NewAgeCipher creates an age cipher with the given work factor.
func NewAgeCipher(workFactor int) *AgeCipher {
	return &AgeCipher{WorkFactor: workFactor}
}

func (c *AgeCipher) workFactor() int {
	if c == nil || c.WorkFactor <= 0 {
		return DefaultWorkFactor
	}
	return c.WorkFactor
}

// Seal encrypts plaintext under password.
func (c *AgeCipher) Seal(plaintext []byte, password string) (string, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(c.workFactor())

	buf := &bytes.Buffer{}
	aw := armor.NewWriter(buf)

	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return "", fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}

	return buf.String(), nil
}

// Open decrypts an armored blob. Every failure maps to ErrWrongPassword so
// callers can treat "wrong password" and "foreign blob" the same way.
func (c *AgeCipher) Open(blob, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrWrongPassword, err)
	}
	// Accept blobs sealed with a stronger factor than ours, but not unbounded ones.
	identity.SetMaxWorkFactor(max(c.workFactor(), DefaultWorkFactor) + 2)

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(blob)), identity)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrWrongPassword, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		Zero(plaintext)
		return nil, walleterr.WithCause(walleterr.ErrWrongPassword, err)
	}
	return plaintext, nil
}

package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
)

// NonceSize is the AES-GCM nonce length used by WrapKey.
const NonceSize = 12

// ErrUnwrapFailed indicates the ciphertext was not produced under this key.
var ErrUnwrapFailed = errors.New("unwrap failed: wrong key or tampered ciphertext")

// KeyFromCredentialID derives the 256-bit wrapping key for a platform
// credential: SHA-256 of its raw id. The caller owns and should zero the key.
func KeyFromCredentialID(rawID []byte) []byte {
	sum := sha256.Sum256(rawID)
	return sum[:]
}

// WrapKey encrypts plaintext with AES-256-GCM under key and a fresh random nonce.
func WrapKey(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = RandomBytes(NonceSize)
	if err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// UnwrapKey reverses WrapKey.
func UnwrapKey(key, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrUnwrapFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Package biometric wraps the account password under a key derived from a
// platform credential, so a biometric assertion can stand in for typing it.
// The wrapped secret is the password, never the mnemonic.
package biometric

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Persisted key layout. These names are part of the backup format.
const (
	CredentialIDKey      = "webauthn_credential_id"
	UserHandleKey        = "webauthn_user_handle"
	EncryptedPasswordKey = "webauthn_encrypted_master_password"
	PasswordNonceKey     = "webauthn_master_password_iv"
	PublicKeyKey         = "webauthn_public_key"

	challengeSize = 32
)

//nolint:gochecknoglobals // Fixed encoding for every stored value
var b64 = base64.RawURLEncoding

// LogWriter is the narrow logging capability the gate needs.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Gate is the biometric unlock path beside the secret store.
type Gate struct {
	kv   kvstore.Store
	auth Authenticator
	log  LogWriter
}

// NewGate creates a gate persisting into kv. A nil logger is allowed.
func NewGate(kv kvstore.Store, auth Authenticator, log LogWriter) *Gate {
	if log == nil {
		log = nopLogger{}
	}
	return &Gate{kv: kv, auth: auth, log: log}
}

// Available reports whether the platform authenticator can be used.
func (g *Gate) Available(ctx context.Context) bool {
	return g.auth != nil && g.auth.Available(ctx)
}

// Register creates a credential and stores password wrapped under SHA-256
// of its raw id. Registering again replaces the previous credential.
func (g *Gate) Register(ctx context.Context, password string) error {
	if password == "" {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "a master password is required to enable biometric unlock")
	}
	if !g.Available(ctx) {
		return walleterr.ErrBiometricUnavailable
	}

	challenge, err := vaultcrypto.RandomBytes(challengeSize)
	if err != nil {
		return err
	}
	handle := uuid.New()

	cred, err := g.auth.Register(ctx, RegistrationOptions{
		RPName:      DefaultRPName,
		UserName:    DefaultUserName,
		DisplayName: DefaultDisplayName,
		UserHandle:  handle[:],
		Challenge:   challenge,
	})
	if err != nil {
		return walleterr.WithCause(walleterr.ErrBiometricAssertionFailed, err)
	}
	if cred == nil || len(cred.RawID) == 0 {
		return walleterr.ErrBiometricAssertionFailed
	}

	key := vaultcrypto.KeyFromCredentialID(cred.RawID)
	defer vaultcrypto.Zero(key)

	secret := []byte(password)
	defer vaultcrypto.Zero(secret)

	ciphertext, nonce, err := vaultcrypto.WrapKey(key, secret)
	if err != nil {
		return fmt.Errorf("wrapping password: %w", err)
	}

	values := []struct{ key, value string }{
		{CredentialIDKey, b64.EncodeToString(cred.RawID)},
		{UserHandleKey, b64.EncodeToString(handle[:])},
		{EncryptedPasswordKey, b64.EncodeToString(ciphertext)},
		{PasswordNonceKey, b64.EncodeToString(nonce)},
	}
	if len(cred.PublicKey) > 0 {
		values = append(values, struct{ key, value string }{PublicKeyKey, b64.EncodeToString(cred.PublicKey)})
	} else if err := g.kv.Delete(ctx, PublicKeyKey); err != nil {
		return err
	}
	for _, v := range values {
		if err := g.kv.Set(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("storing %s: %w", v.key, err)
		}
	}

	g.log.Debug("biometric credential registered")
	return nil
}

// Authenticate asks the platform for an assertion and unwraps the stored
// password with the key derived from the returned raw id. It fails with
// ErrBiometricUnavailable when nothing is registered and with
// ErrBiometricAssertionFailed when the assertion or the unwrap fails.
func (g *Gate) Authenticate(ctx context.Context) (string, error) {
	credID, err := g.read(ctx, CredentialIDKey)
	if err != nil {
		return "", err
	}
	if credID == nil {
		return "", walleterr.WithSuggestion(walleterr.ErrBiometricUnavailable, "biometric credential not set up")
	}
	if !g.Available(ctx) {
		return "", walleterr.ErrBiometricUnavailable
	}

	challenge, err := vaultcrypto.RandomBytes(challengeSize)
	if err != nil {
		return "", err
	}

	assertion, err := g.auth.Assert(ctx, AssertionRequest{CredentialID: credID, Challenge: challenge})
	if err != nil {
		return "", walleterr.WithCause(walleterr.ErrBiometricAssertionFailed, err)
	}
	if assertion == nil {
		return "", walleterr.ErrBiometricAssertionFailed
	}

	if err := g.verify(ctx, challenge, assertion.Signature); err != nil {
		g.log.Error("biometric assertion signature rejected")
		return "", err
	}

	ciphertext, err := g.read(ctx, EncryptedPasswordKey)
	if err != nil {
		return "", err
	}
	nonce, err := g.read(ctx, PasswordNonceKey)
	if err != nil {
		return "", err
	}
	if ciphertext == nil || nonce == nil {
		return "", walleterr.ErrBiometricUnavailable
	}

	key := vaultcrypto.KeyFromCredentialID(assertion.RawID)
	defer vaultcrypto.Zero(key)

	plain, err := vaultcrypto.UnwrapKey(key, nonce, ciphertext)
	if err != nil {
		return "", walleterr.WithCause(walleterr.ErrBiometricAssertionFailed, err)
	}
	defer vaultcrypto.Zero(plain)

	return string(plain), nil
}

// Forget removes the credential and the wrapped password, disabling the
// fast path. It cannot revoke the platform credential itself.
func (g *Gate) Forget(ctx context.Context) error {
	if remover, ok := g.auth.(interface {
		Remove(ctx context.Context, credentialID []byte) error
	}); ok {
		if credID, err := g.read(ctx, CredentialIDKey); err == nil && credID != nil {
			if err := remover.Remove(ctx, credID); err != nil {
				g.log.Error("removing local credential: %v", err)
			}
		}
	}

	for _, key := range []string{CredentialIDKey, UserHandleKey, EncryptedPasswordKey, PasswordNonceKey, PublicKeyKey} {
		if err := g.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %s: %w", key, err)
		}
	}
	g.log.Debug("biometric credential forgotten")
	return nil
}

// IsRegistered reports whether a credential id is stored.
func (g *Gate) IsRegistered(ctx context.Context) (bool, error) {
	_, ok, err := g.kv.Get(ctx, CredentialIDKey)
	return ok, err
}

// verify checks the assertion signature when a public key was stored.
func (g *Gate) verify(ctx context.Context, challenge, signature []byte) error {
	der, err := g.read(ctx, PublicKeyKey)
	if err != nil || der == nil {
		return err
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return walleterr.WithCause(walleterr.ErrBiometricAssertionFailed, err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return walleterr.ErrBiometricAssertionFailed
	}

	digest := sha256.Sum256(challenge)
	if !ecdsa.VerifyASN1(pub, digest[:], signature) {
		return walleterr.ErrBiometricAssertionFailed
	}
	return nil
}

// read returns the decoded value of key, or nil when it is absent.
func (g *Gate) read(ctx context.Context, key string) ([]byte, error) {
	v, ok, err := g.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok || v == "" {
		return nil, nil
	}
	raw, err := b64.DecodeString(v)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrBiometricAssertionFailed, err)
	}
	return raw, nil
}

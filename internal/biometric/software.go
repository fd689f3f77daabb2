package biometric

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
)

// softKeyPrefix namespaces software credential keys inside the kv store.
const softKeyPrefix = "softauthn:"

const credentialIDSize = 32

var (
	// ErrPresenceDenied indicates the user did not confirm presence.
	ErrPresenceDenied = errors.New("user presence not confirmed")

	// ErrUnknownCredential indicates the credential is not held by this authenticator.
	ErrUnknownCredential = errors.New("unknown credential")
)

// PresenceFunc is the yes/no "user present" gate.
type PresenceFunc func(ctx context.Context, prompt string) (bool, error)

// SoftwareAuthenticator is an ES256 credential kept in a key/value store,
// standing in for a platform authenticator on the CLI and in tests.
type SoftwareAuthenticator struct {
	kv       kvstore.Store
	presence PresenceFunc
}

// NewSoftwareAuthenticator creates an authenticator storing its private keys in kv.
// A nil presence func always confirms.
func NewSoftwareAuthenticator(kv kvstore.Store, presence PresenceFunc) *SoftwareAuthenticator {
	if presence == nil {
		presence = func(context.Context, string) (bool, error) { return true, nil }
	}
	return &SoftwareAuthenticator{kv: kv, presence: presence}
}

// Available implements Authenticator.
func (a *SoftwareAuthenticator) Available(context.Context) bool {
	return a.kv != nil
}

// Register implements Authenticator.
func (a *SoftwareAuthenticator) Register(ctx context.Context, opts RegistrationOptions) (*Credential, error) {
	if err := a.confirm(ctx, "Register biometric unlock for "+opts.RPName); err != nil {
		return nil, err
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), vaultcrypto.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating credential key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	defer vaultcrypto.Zero(der)

	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	rawID, err := vaultcrypto.RandomBytes(credentialIDSize)
	if err != nil {
		return nil, err
	}

	if err := a.kv.Set(ctx, softKeyPrefix+b64.EncodeToString(rawID), b64.EncodeToString(der)); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	return &Credential{RawID: rawID, PublicKey: pub}, nil
}

// Assert implements Authenticator.
func (a *SoftwareAuthenticator) Assert(ctx context.Context, req AssertionRequest) (*Assertion, error) {
	v, ok, err := a.kv.Get(ctx, softKeyPrefix+b64.EncodeToString(req.CredentialID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownCredential
	}

	if err := a.confirm(ctx, "Unlock your wallet"); err != nil {
		return nil, err
	}

	der, err := b64.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	defer vaultcrypto.Zero(der)

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing credential: %w", err)
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrUnknownCredential
	}

	digest := sha256.Sum256(req.Challenge)
	sig, err := ecdsa.SignASN1(vaultcrypto.Reader, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing challenge: %w", err)
	}
	return &Assertion{RawID: append([]byte(nil), req.CredentialID...), Signature: sig}, nil
}

// Remove deletes a software credential's private key.
func (a *SoftwareAuthenticator) Remove(ctx context.Context, credentialID []byte) error {
	return a.kv.Delete(ctx, softKeyPrefix+b64.EncodeToString(credentialID))
}

func (a *SoftwareAuthenticator) confirm(ctx context.Context, prompt string) error {
	ok, err := a.presence(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPresenceDenied
	}
	return nil
}

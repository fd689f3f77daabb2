package biometric

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

func newGate(t *testing.T, presence PresenceFunc) (*Gate, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	return NewGate(kv, NewSoftwareAuthenticator(kv, presence), nil), kv
}

func TestRegisterAuthenticate_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, kv := newGate(t, nil)

	registered, err := g.IsRegistered(ctx)
	require.NoError(t, err)
	assert.False(t, registered)

	require.NoError(t, g.Register(ctx, "pw1"))

	registered, err = g.IsRegistered(ctx)
	require.NoError(t, err)
	assert.True(t, registered)

	pw, err := g.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pw1", pw)

	for _, key := range []string{CredentialIDKey, UserHandleKey, EncryptedPasswordKey, PasswordNonceKey, PublicKeyKey} {
		v, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
		assert.NotContains(t, v, "pw1", key)
	}

	handle, _, err := kv.Get(ctx, UserHandleKey)
	require.NoError(t, err)
	raw, err := b64.DecodeString(handle)
	require.NoError(t, err)
	_, err = uuid.FromBytes(raw)
	require.NoError(t, err, "user handle is a uuid")

	nonce, _, err := kv.Get(ctx, PasswordNonceKey)
	require.NoError(t, err)
	rawNonce, err := b64.DecodeString(nonce)
	require.NoError(t, err)
	assert.Len(t, rawNonce, vaultcrypto.NonceSize)
}

func TestRegister_RequiresPassword(t *testing.T) {
	t.Parallel()
	g, _ := newGate(t, nil)
	require.ErrorIs(t, g.Register(context.Background(), ""), walleterr.ErrInvalidInput)
}

func TestRegister_Unavailable(t *testing.T) {
	t.Parallel()
	g := NewGate(kvstore.NewMemory(), nil, nil)
	require.ErrorIs(t, g.Register(context.Background(), "pw"), walleterr.ErrBiometricUnavailable)
	assert.False(t, g.Available(context.Background()))
}

func TestAuthenticate_NotRegistered(t *testing.T) {
	t.Parallel()
	g, _ := newGate(t, nil)

	pw, err := g.Authenticate(context.Background())
	require.ErrorIs(t, err, walleterr.ErrBiometricUnavailable)
	assert.Empty(t, pw)
}

func TestAuthenticate_PresenceDenied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	allow := true
	g, _ := newGate(t, func(context.Context, string) (bool, error) { return allow, nil })
	require.NoError(t, g.Register(ctx, "pw"))

	allow = false
	pw, err := g.Authenticate(ctx)
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
	require.ErrorIs(t, err, ErrPresenceDenied)
	assert.Empty(t, pw)
}

func TestAuthenticate_TamperedCiphertext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, kv := newGate(t, nil)
	require.NoError(t, g.Register(ctx, "pw"))

	v, _, err := kv.Get(ctx, EncryptedPasswordKey)
	require.NoError(t, err)
	raw, err := b64.DecodeString(v)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, kv.Set(ctx, EncryptedPasswordKey, b64.EncodeToString(raw)))

	pw, err := g.Authenticate(ctx)
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
	assert.Empty(t, pw)
}

// foreignAuthenticator returns a different raw id than the one registered.
type foreignAuthenticator struct {
	*SoftwareAuthenticator
}

func (f foreignAuthenticator) Assert(ctx context.Context, req AssertionRequest) (*Assertion, error) {
	a, err := f.SoftwareAuthenticator.Assert(ctx, req)
	if err != nil {
		return nil, err
	}
	a.RawID = []byte("someone else's credential")
	return a, nil
}

func TestAuthenticate_ForeignCredentialCannotUnwrap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := kvstore.NewMemory()
	soft := NewSoftwareAuthenticator(kv, nil)

	require.NoError(t, NewGate(kv, soft, nil).Register(ctx, "pw"))

	pw, err := NewGate(kv, foreignAuthenticator{soft}, nil).Authenticate(ctx)
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
	assert.Empty(t, pw)
}

// badSignatureAuthenticator signs with garbage.
type badSignatureAuthenticator struct {
	*SoftwareAuthenticator
}

func (b badSignatureAuthenticator) Assert(ctx context.Context, req AssertionRequest) (*Assertion, error) {
	a, err := b.SoftwareAuthenticator.Assert(ctx, req)
	if err != nil {
		return nil, err
	}
	a.Signature = []byte{0x30, 0x00}
	return a, nil
}

func TestAuthenticate_RejectsBadSignature(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := kvstore.NewMemory()
	soft := NewSoftwareAuthenticator(kv, nil)
	require.NoError(t, NewGate(kv, soft, nil).Register(ctx, "pw"))

	_, err := NewGate(kv, badSignatureAuthenticator{soft}, nil).Authenticate(ctx)
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
}

func TestForget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, kv := newGate(t, nil)
	require.NoError(t, g.Register(ctx, "pw"))
	require.NoError(t, g.Forget(ctx))

	registered, err := g.IsRegistered(ctx)
	require.NoError(t, err)
	assert.False(t, registered)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "credential key material is removed too")

	_, err = g.Authenticate(ctx)
	require.ErrorIs(t, err, walleterr.ErrBiometricUnavailable)
}

func TestRegister_ReplacesPreviousCredential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g, _ := newGate(t, nil)

	require.NoError(t, g.Register(ctx, "old"))
	require.NoError(t, g.Register(ctx, "new"))

	pw, err := g.Authenticate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", pw)
}

func TestRegister_PresenceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("prompt closed")
	g, _ := newGate(t, func(context.Context, string) (bool, error) { return false, boom })

	err := g.Register(context.Background(), "pw")
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
	require.ErrorIs(t, err, boom)
}

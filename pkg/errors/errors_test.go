package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

var (
	errInner  = errors.New("inner")
	errRemote = errors.New("nonce too low")
	errPlain  = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, walleterr.ExitSuccess},
		{"general error", walleterr.ErrGeneral, walleterr.ExitGeneral},
		{"input error", walleterr.ErrInvalidInput, walleterr.ExitInput},
		{"invalid mnemonic", walleterr.ErrInvalidMnemonic, walleterr.ExitInput},
		{"password mismatch", walleterr.ErrPasswordMismatch, walleterr.ExitAuth},
		{"not found error", walleterr.ErrNotFound, walleterr.ExitNotFound},
		{"fee exceeds balance", walleterr.ErrInsufficientBalanceForFee, walleterr.ExitFunds},
		{"zero balance", walleterr.ErrZeroBalance, walleterr.ExitFunds},
		{"plain error", errPlain, walleterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, walleterr.ExitCode(tt.err))
		})
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()
	sentinels := []error{
		walleterr.ErrInvalidMnemonic,
		walleterr.ErrAccountNameConflict,
		walleterr.ErrPasswordMismatch,
		walleterr.ErrDuplicateMnemonic,
		walleterr.ErrUnsupportedChain,
		walleterr.ErrInsufficientBalanceForFee,
		walleterr.ErrZeroBalance,
		walleterr.ErrBroadcastRejected,
		walleterr.ErrBiometricUnavailable,
		walleterr.ErrBiometricAssertionFailed,
		walleterr.ErrStoreCorrupted,
	}

	for _, sentinel := range sentinels {
		wrapped := walleterr.Wrap(sentinel, "account alice")
		require.ErrorIs(t, wrapped, sentinel)
		assert.Equal(t, walleterr.Code(sentinel), walleterr.Code(wrapped))
		assert.Equal(t, walleterr.ExitCode(sentinel), walleterr.ExitCode(wrapped))
	}
}

func TestWrapDistinguishesCodes(t *testing.T) {
	t.Parallel()
	wrapped := walleterr.Wrap(walleterr.ErrZeroBalance, "sol")
	assert.NotErrorIs(t, wrapped, walleterr.ErrBroadcastRejected)
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	require.NoError(t, walleterr.Wrap(nil, "nothing"))
	require.NoError(t, walleterr.WithDetails(nil, map[string]string{"a": "b"}))
	require.NoError(t, walleterr.WithSuggestion(nil, "hint"))
	require.NoError(t, walleterr.WithCause(nil, errInner))
}

func TestWrapPlainError(t *testing.T) {
	t.Parallel()
	wrapped := walleterr.Wrap(errPlain, "context %d", 7)
	require.ErrorIs(t, wrapped, errPlain)
	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(wrapped))
	assert.Equal(t, "context 7: plain error", wrapped.Error())
}

func TestWithDetailsSortedMessage(t *testing.T) {
	t.Parallel()
	err := walleterr.WithDetails(walleterr.ErrInsufficientBalanceForFee, map[string]string{
		"fee":     "0.002",
		"balance": "0.001",
	})

	require.ErrorIs(t, err, walleterr.ErrInsufficientBalanceForFee)
	assert.Equal(t, "insufficient balance for gas fee (balance: 0.001) (fee: 0.002)", err.Error())
}

func TestWithSuggestion(t *testing.T) {
	t.Parallel()
	err := walleterr.WithSuggestion(walleterr.ErrAccountNameConflict, "choose another name")

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "choose another name", we.Suggestion)
	assert.Equal(t, "ACCOUNT_NAME_CONFLICT", we.Code)
}

func TestWithCauseKeepsRemoteMessage(t *testing.T) {
	t.Parallel()
	err := walleterr.WithCause(walleterr.ErrBroadcastRejected, errRemote)

	require.ErrorIs(t, err, walleterr.ErrBroadcastRejected)
	require.ErrorIs(t, err, errRemote)
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestWithCausePlainTarget(t *testing.T) {
	t.Parallel()
	err := walleterr.WithCause(errPlain, errInner)
	require.ErrorIs(t, err, errPlain)
	require.ErrorIs(t, err, errInner)
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := walleterr.New("CUSTOM", "custom failure")
	assert.Equal(t, "CUSTOM", err.Code)
	assert.Equal(t, walleterr.ExitGeneral, err.ExitCode)
	assert.Equal(t, "custom failure", err.Error())
}

func TestAsHelper(t *testing.T) {
	t.Parallel()
	var we *walleterr.WalletError
	assert.True(t, walleterr.As(walleterr.Wrap(walleterr.ErrNotFound, "x"), &we))
	assert.True(t, walleterr.Is(we, walleterr.ErrNotFound))
}

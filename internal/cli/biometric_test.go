package cli

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

func TestBiometric_Lifecycle(t *testing.T) {
	setupHome(t, "")

	stdout, _, err := executeCommand(t, "biometric", "status", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"available":true,"registered":false}`, stdout)

	withMockPrompts(t, testPassword, true, "")
	_, _, err = executeCommand(t, "biometric", "enable")
	require.ErrorIs(t, err, walleterr.ErrNotFound)

	importTestAccount(t, "")

	withMockPrompts(t, "not-the-password", true, "")
	_, _, err = executeCommand(t, "biometric", "enable")
	require.ErrorIs(t, err, walleterr.ErrWrongPassword)

	withMockPrompts(t, testPassword, true, "")
	stdout, _, err = executeCommand(t, "biometric", "enable", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"registered":true}`, stdout)

	stdout, _, err = executeCommand(t, "biometric", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Available:  yes")
	assert.Contains(t, stdout, "Registered: yes")

	stdout, _, err = executeCommand(t, "biometric", "forget")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Biometric unlock removed")

	stdout, _, err = executeCommand(t, "biometric", "status", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"available":true,"registered":false}`, stdout)
}

func TestSend_Biometric(t *testing.T) {
	setupHome(t, "")
	importTestAccount(t, "")

	_, _, err := executeCommand(t, "biometric", "enable")
	require.NoError(t, err)

	signer := &fakeSigner{balance: big.NewInt(1_000_000_000)}
	fakeRegistry(t, chain.ETH, signer)

	// The typed password is wrong, so success proves the gate supplied it.
	withMockPrompts(t, "not-the-password", true, "")
	_, _, err = executeCommand(t, "send", "--chain", "eth", "--to", testRecipient, "--amount", "0.000000001", "--yes", "--biometric")
	require.NoError(t, err)
	assert.Equal(t, 1, signer.calls)

	// Presence declined.
	withMockPrompts(t, testPassword, false, "")
	_, _, err = executeCommand(t, "send", "--chain", "eth", "--to", testRecipient, "--amount", "0.000000001", "--yes", "--biometric")
	require.ErrorIs(t, err, walleterr.ErrBiometricAssertionFailed)
	assert.Equal(t, 1, signer.calls)

	_, _, err = executeCommand(t, "biometric", "forget")
	require.NoError(t, err)

	_, _, err = executeCommand(t, "send", "--chain", "eth", "--to", testRecipient, "--amount", "0.000000001", "--yes", "--biometric")
	require.ErrorIs(t, err, walleterr.ErrBiometricUnavailable)
}

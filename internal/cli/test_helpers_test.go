package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword = "correct-horse-9"

	testETHAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testBTCAddress = "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"
)

// withMockPrompts replaces the interactive prompts for one test.
func withMockPrompts(t *testing.T, password string, confirm bool, mnemonic string) {
	t.Helper()

	origPassword, origNew, origMnemonic, origConfirm := promptPasswordFn, promptNewPasswordFn, promptMnemonicFn, promptConfirmFn
	t.Cleanup(func() {
		promptPasswordFn, promptNewPasswordFn, promptMnemonicFn, promptConfirmFn = origPassword, origNew, origMnemonic, origConfirm
	})

	// Callers zero what they get back, so hand out a fresh slice each time.
	promptPasswordFn = func(string) ([]byte, error) { return []byte(password), nil }
	promptNewPasswordFn = func() ([]byte, error) { return []byte(password), nil }
	promptMnemonicFn = func() (string, error) { return mnemonic, nil }
	promptConfirmFn = func(string) bool { return confirm }
}

// setupHome writes a config.yaml into a fresh home and points NOPE_HOME at
// it. extra is appended verbatim and must only add top-level sections other
// than version, security, logging and output.
func setupHome(t *testing.T, extra string) string {
	t.Helper()

	home := t.TempDir()
	base := `version: 1
security:
  password_policy: shared
  secret_ttl_seconds: 60
  scrypt_work_factor: 10
logging:
  level: off
  file: ""
output:
  default_format: text
`
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(base+extra), 0o600))
	t.Setenv("NOPE_HOME", home)

	origKeyringCheck := keyringAvailableFn
	keyringAvailableFn = func(string) bool { return false }
	t.Cleanup(func() { keyringAvailableFn = origKeyringCheck })

	return home
}

// withRegistry makes commands sign through reg.
func withRegistry(t *testing.T, reg *chain.Registry) {
	t.Helper()
	orig := buildRegistryFn
	buildRegistryFn = func(*CommandContext) *chain.Registry { return reg }
	t.Cleanup(func() { buildRegistryFn = orig })
}

// executeCommand runs the root command with args and returns what it wrote
// to stdout and stderr. Flags are reset first because cobra keeps their
// values between runs.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func resetFlags(root *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	walkCommands(root, func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	})
}

// importTestAccount stores testMnemonic as accountID in the current home.
func importTestAccount(t *testing.T, accountID string) {
	t.Helper()
	withMockPrompts(t, testPassword, true, testMnemonic)

	args := []string{"wallet", "import"}
	if accountID != "" {
		args = append(args, "--account", accountID)
	}
	_, _, err := executeCommand(t, args...)
	require.NoError(t, err)
}

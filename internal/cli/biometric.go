package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/biometric"
	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// biometricCmd groups the biometric unlock commands.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var biometricCmd = &cobra.Command{
	Use:   "biometric",
	Short: "Manage biometric unlock",
	Long: `Register, check and remove the credential that unlocks the master password
without typing it.

The master password is stored wrapped under a key derived from the credential.
The credential's private key lives in the OS keyring when one is available.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var biometricEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Register biometric unlock",
	Long: `Register a credential and wrap the master password under it.

The password is checked against the stored accounts first. Registering again
replaces the previous credential.`,
	Example: `  nope biometric enable`,
	Args:    cobra.NoArgs,
	RunE:    runBiometricEnable,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var biometricForgetCmd = &cobra.Command{
	Use:     "forget",
	Short:   "Remove biometric unlock",
	Long:    `Remove the registered credential and the wrapped master password.`,
	Example: `  nope biometric forget`,
	Args:    cobra.NoArgs,
	RunE:    runBiometricForget,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var biometricStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show whether biometric unlock is set up",
	Long:    `Report whether an authenticator is available and a credential is registered.`,
	Example: `  nope biometric status`,
	Args:    cobra.NoArgs,
	RunE:    runBiometricStatus,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(biometricCmd)
	biometricCmd.GroupID = groupSecurity
	biometricCmd.AddCommand(biometricEnableCmd, biometricForgetCmd, biometricStatusCmd)
	enrichParentLong(biometricCmd)
}

// newGate builds the gate over kv. The software credential's keys go to the
// OS keyring when it works, otherwise next to the wallet data.
func (c *CommandContext) newGate(kv kvstore.Store) *biometric.Gate {
	authStore := kv
	if service := keyringService(c.Cfg); keyringAvailableFn(service) {
		authStore = kvstore.NewKeyring(service)
	}
	return biometric.NewGate(kv, biometric.NewSoftwareAuthenticator(authStore, confirmPresence), c.Log)
}

func runBiometricEnable(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	secrets, kv, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	ids, err := secrets.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return walleterr.WithSuggestion(walleterr.ErrNotFound, "create an account first: nope wallet create")
	}

	password, err := readPassword("Enter master password: ")
	if err != nil {
		return err
	}
	if err := verifyPassword(cmd, secrets, ids, password); err != nil {
		return err
	}

	if err := cmdCtx.newGate(kv).Register(ctx, password); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, map[string]bool{"registered": true})
	}
	output.Success(w, "Biometric unlock enabled")
	return nil
}

// verifyPassword checks that password opens at least one account.
func verifyPassword(cmd *cobra.Command, secrets *secretstore.Store, ids []string, password string) error {
	for _, id := range ids {
		secret, err := secrets.Load(cmd.Context(), id, password)
		if err != nil {
			return err
		}
		if secret != nil {
			secret.Destroy()
			return nil
		}
	}
	return walleterr.ErrWrongPassword
}

func runBiometricForget(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	kv, closeFn, err := openStoreFn(ctx, cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if err := cmdCtx.newGate(kv).Forget(ctx); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, map[string]bool{"registered": false})
	}
	output.Success(w, "Biometric unlock removed")
	return nil
}

func runBiometricStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	kv, closeFn, err := openStoreFn(ctx, cmdCtx.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	gate := cmdCtx.newGate(kv)
	registered, err := gate.IsRegistered(ctx)
	if err != nil {
		return err
	}
	status := struct {
		Available  bool `json:"available"`
		Registered bool `json:"registered"`
	}{gate.Available(ctx), registered}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, status)
	}
	out(w, "Available:  %s\n", yesNo(status.Available))
	out(w, "Registered: %s\n", yesNo(status.Registered))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

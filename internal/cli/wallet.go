package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pandodao/generic"
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// Account names, one per command so flag defaults do not leak.
	createAccount    string
	importAccount    string
	removeAccount    string
	addressesAccount string
	// createWords is the number of words for mnemonic generation.
	createWords int
	// removeYes skips the removal confirmation.
	removeYes bool
)

// walletCmd groups the account commands.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet accounts",
	Long: `Create, import, list and remove wallet accounts.

Each account is one BIP-39 mnemonic stored encrypted under the master
password. The same mnemonic derives an address on every supported chain.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	Long: `Generate a new mnemonic, encrypt it under the master password and store it.

The mnemonic is shown once. Write it down: it is the only way to recover the
account if the store is lost.`,
	Example: `  nope wallet create
  nope wallet create --account savings --words 24`,
	Args: cobra.NoArgs,
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an existing mnemonic",
	Long: `Import a BIP-39 mnemonic and store it encrypted under the master password.

Pasted phrases may use list numbering, bullets or commas. Misspelled words are
reported with the closest word from the BIP-39 list.`,
	Example: `  nope wallet import
  nope wallet import --account old-phone`,
	Args: cobra.NoArgs,
	RunE: runWalletImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored accounts",
	Long:    `List the accounts in the store. Nothing is decrypted.`,
	Example: `  nope wallet list`,
	Args:    cobra.NoArgs,
	RunE:    runWalletList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an account",
	Long: `Delete an account's encrypted mnemonic from the store.

This cannot be undone. Make sure the mnemonic is backed up first.`,
	Example: `  nope wallet remove --account account2
  nope wallet remove --account account2 --yes`,
	Args: cobra.NoArgs,
	RunE: runWalletRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletAddressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Show an account's addresses",
	Long: `Decrypt an account and show its address and derivation path on every chain.

BTC uses BIP-84 native segwit. ETH, BNB, AVAX, BASE and POL share one address.`,
	Example: `  nope wallet addresses
  nope wallet addresses --account savings -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletAddresses,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.GroupID = groupAccounts
	walletCmd.AddCommand(walletCreateCmd, walletImportCmd, walletListCmd, walletRemoveCmd, walletAddressesCmd)

	walletCreateCmd.Flags().StringVarP(&createAccount, "account", "a", "", "account name (default: next free accountN)")
	walletCreateCmd.Flags().IntVar(&createWords, "words", wallet.DefaultWordCount, "mnemonic length: 12 or 24")

	walletImportCmd.Flags().StringVarP(&importAccount, "account", "a", "", "account name (default: next free accountN)")

	walletRemoveCmd.Flags().StringVarP(&removeAccount, "account", "a", "", "account to remove (required)")
	walletRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip the confirmation prompt")
	_ = walletRemoveCmd.MarkFlagRequired("account")

	walletAddressesCmd.Flags().StringVarP(&addressesAccount, "account", "a", secretstore.DefaultAccountID, "account name")

	enrichParentLong(walletCmd)
}

func runWalletCreate(cmd *cobra.Command, _ []string) error {
	mnemonic, err := wallet.GenerateMnemonic(createWords)
	if err != nil {
		return walleterr.WithCause(walleterr.ErrInvalidInput, err)
	}

	account, err := saveMnemonic(cmd, mnemonic, createAccount)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if GetCmdContext(cmd).Fmt.IsJSON() {
		return writeJSON(w, map[string]string{"account": account.ID, "mnemonic": mnemonic})
	}

	output.Success(w, "Created account %s", account.ID)
	outln(w)
	outln(w, "Recovery phrase (write it down, it is shown only once):")
	outln(w)
	for i, word := range strings.Fields(mnemonic) {
		out(w, "  %2d. %s\n", i+1, word)
	}
	outln(w)
	return showAddresses(w, mnemonic)
}

func runWalletImport(cmd *cobra.Command, _ []string) error {
	input, err := promptMnemonicFn()
	if err != nil {
		return err
	}
	mnemonic := wallet.NormalizeMnemonicInput(input)
	if err := wallet.ValidateMnemonic(mnemonic); err != nil {
		return err
	}

	account, err := saveMnemonic(cmd, mnemonic, importAccount)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if GetCmdContext(cmd).Fmt.IsJSON() {
		return writeJSON(w, account)
	}
	output.Success(w, "Imported account %s", account.ID)
	outln(w)
	return showAddresses(w, mnemonic)
}

// saveMnemonic prompts for the master password and stores mnemonic. The
// first account sets the password, later ones must repeat it.
func saveMnemonic(cmd *cobra.Command, mnemonic, accountID string) (secretstore.Account, error) {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	secrets, _, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return secretstore.Account{}, err
	}
	defer func() { _ = closeFn() }()

	existing, err := secrets.ListAccounts(ctx)
	if err != nil {
		return secretstore.Account{}, err
	}

	var password []byte
	if len(existing) == 0 {
		password, err = promptNewPasswordFn()
	} else {
		password, err = promptPasswordFn("Enter master password: ")
	}
	if err != nil {
		return secretstore.Account{}, err
	}
	defer vaultcrypto.Zero(password)

	account, err := secrets.Save(ctx, mnemonic, string(password), accountID)
	if err != nil {
		return secretstore.Account{}, err
	}
	cmdCtx.Log.Debug("saved account %s", account.ID)
	return account, nil
}

func runWalletList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	secrets, _, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	ids, err := secrets.ListAccounts(ctx)
	if err != nil {
		return err
	}
	ids = secretstore.SortedAccounts(ids)

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		if ids == nil {
			ids = []string{}
		}
		return writeJSON(w, ids)
	}

	if len(ids) == 0 {
		outln(w, "No accounts found.")
		outln(w, "Create one with: nope wallet create")
		return nil
	}
	outln(w, "Accounts:")
	for _, id := range ids {
		out(w, "  - %s\n", id)
	}
	return nil
}

func runWalletRemove(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	secrets, _, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	id := secretstore.NormalizeAccountID(removeAccount)
	if err := requireAccount(ctx, secrets, id); err != nil {
		return err
	}

	if !removeYes && !promptConfirmFn(fmt.Sprintf("Remove account %s? Its mnemonic cannot be recovered without a backup.", id)) {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "removal cancelled")
	}

	if err := secrets.Clear(ctx, id); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, map[string]string{"removed": id})
	}
	output.Success(w, "Removed account %s", id)
	return nil
}

func runWalletAddresses(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	addrs, err := accountAddresses(ctx, cmdCtx, addressesAccount)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, addrs)
	}
	return addressTable(addrs).Render(w)
}

// requireAccount fails with ErrNotFound when id is not stored.
func requireAccount(ctx context.Context, secrets *secretstore.Store, id string) error {
	ok, err := secrets.Has(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"account": id}),
			"list accounts with: nope wallet list",
		)
	}
	return nil
}

// unlock prompts for the password and decrypts an account's mnemonic.
// The caller must Destroy the returned secret.
func unlock(ctx context.Context, cmdCtx *CommandContext, accountID string) (*vaultcrypto.ScopedSecret, error) {
	secrets, _, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	id := secretstore.NormalizeAccountID(accountID)
	if err := requireAccount(ctx, secrets, id); err != nil {
		return nil, err
	}

	password, err := readPassword("Enter master password: ")
	if err != nil {
		return nil, err
	}
	secret, err := secrets.Load(ctx, id, password)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, walleterr.ErrWrongPassword
	}
	return secret, nil
}

// accountAddresses decrypts accountID and derives every chain's address.
func accountAddresses(ctx context.Context, cmdCtx *CommandContext, accountID string) ([]*wallet.Address, error) {
	secret, err := unlock(ctx, cmdCtx, accountID)
	if err != nil {
		return nil, err
	}
	defer secret.Destroy()

	var addrs []*wallet.Address
	err = secret.Use(func(phrase []byte) error {
		var err error
		addrs, err = deriveAddresses(string(phrase))
		return err
	})
	return addrs, err
}

// deriveAddresses returns every chain's address in display order.
func deriveAddresses(mnemonic string) ([]*wallet.Address, error) {
	seed, err := wallet.MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer vaultcrypto.Zero(seed)

	byChain, err := wallet.DeriveAll(seed)
	if err != nil {
		return nil, err
	}
	return generic.MapSlice(chain.All(), func(id chain.ID) *wallet.Address { return byChain[id] }), nil
}

func addressTable(addrs []*wallet.Address) *output.Table {
	table := output.NewTable(output.Left("CHAIN"), output.Left("ADDRESS"), output.Left("PATH"))
	for _, a := range addrs {
		table.AddRow(a.Chain.String(), a.Address, a.Path)
	}
	return table
}

func showAddresses(w io.Writer, mnemonic string) error {
	addrs, err := deriveAddresses(mnemonic)
	if err != nil {
		return err
	}
	outln(w, "Addresses:")
	return addressTable(addrs).Render(w)
}

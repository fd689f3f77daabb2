package cli

import (
	"fmt"
	"strings"

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
	// receiveAccount is the account to show an address for.
	receiveAccount string
	// receiveChain is the blockchain to show an address for.
	receiveChain string
)

// receiveCmd shows a receiving address for an account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Show a receiving address",
	Long: `Display an account's receiving address on one chain.

On a terminal the address is also rendered as a QR code.`,
	Example: `  nope receive --chain btc
  nope receive --account savings --chain sol`,
	Args: cobra.NoArgs,
	RunE: runReceive,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.GroupID = groupAccounts

	receiveCmd.Flags().StringVarP(&receiveAccount, "account", "a", secretstore.DefaultAccountID, "account name")
	receiveCmd.Flags().StringVarP(&receiveChain, "chain", "c", "", "blockchain: "+chainList(chain.All())+" (required)")
	_ = receiveCmd.RegisterFlagCompletionFunc("chain", completeChains)
	_ = receiveCmd.MarkFlagRequired("chain")
}

func runReceive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	id, err := parseChain(receiveChain)
	if err != nil {
		return err
	}

	secret, err := unlock(ctx, cmdCtx, receiveAccount)
	if err != nil {
		return err
	}
	defer secret.Destroy()

	var addr *wallet.Address
	err = secret.Use(func(phrase []byte) error {
		seed, err := wallet.MnemonicToSeed(string(phrase), "")
		if err != nil {
			return err
		}
		defer vaultcrypto.Zero(seed)
		addr, err = wallet.DeriveAddress(seed, id)
		return err
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, addr)
	}

	var evmChainID int64
	if nc, err := cmdCtx.Cfg.EVM(id); err == nil {
		evmChainID = nc.ChainID
	}
	uri := output.PaymentURI(id, addr.Address, evmChainID)

	out(w, "%s address: %s\n", id.Symbol(), addr.Address)
	out(w, "Path: %s\n", addr.Path)
	out(w, "URI: %s\n", uri)
	if output.IsTerminal(w) {
		outln(w)
	}
	_, err = output.WriteReceiveQR(w, uri)
	return err
}

// parseChain resolves a --chain value.
func parseChain(s string) (chain.ID, error) {
	id, ok := chain.ParseChainID(s)
	if !ok {
		return "", walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": s}),
			"supported chains: "+chainList(chain.All()),
		)
	}
	return id, nil
}

// parseChains resolves a comma-separated --chain value. Empty means every chain.
func parseChains(s string) ([]chain.ID, error) {
	if strings.TrimSpace(s) == "" {
		return chain.All(), nil
	}
	seen := make(map[chain.ID]bool)
	var ids []chain.ID
	for _, part := range strings.Split(s, ",") {
		id, err := parseChain(part)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	chain.SortIDs(ids)
	return ids, nil
}

func chainList(ids []chain.ID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, ", ")
}

// requireSendable rejects chains the wallet can only receive on.
func requireSendable(id chain.ID) error {
	if id == chain.BTC {
		return walleterr.WithSuggestion(walleterr.ErrUnsupportedChain,
			fmt.Sprintf("%s supports receiving and balances only", id.Symbol()))
	}
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	"github.com/mrz1836/nopewallet/internal/service/transaction"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	sendAccount   string
	sendChain     string
	sendTo        string
	sendAmount    string
	sendBalance   string
	sendYes       bool
	sendBiometric bool
)

// sendCmd sends a native transfer.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a native transfer",
	Long: `Sign and broadcast a native transfer on ETH, BNB, AVAX, BASE, POL, SOL or TRX.

The mnemonic is decrypted only for the moment the transaction is signed. Use
--amount all to send the whole balance. On EVM chains an amount equal to
--balance is also sent as the whole balance minus the fee. A broadcast is
never retried; re-run the command to try again.`,
	Example: `  nope send --chain eth --to 0x742d35Cc6634C0532925a3b844Bc454e4438f44e --amount 0.01
  nope send --chain sol --to 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --amount all --yes
  nope send --chain trx --to TJCnKsPa7y5okkXvQAidZBzqx3QyQ6sxMW --amount 10 --biometric`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.GroupID = groupFunds

	sendCmd.Flags().StringVarP(&sendAccount, "account", "a", secretstore.DefaultAccountID, "account to send from")
	sendCmd.Flags().StringVarP(&sendChain, "chain", "c", "", "blockchain: eth, bnb, avax, base, pol, sol, trx (required)")
	_ = sendCmd.RegisterFlagCompletionFunc("chain", completeChains)
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in display units, or \"all\" (required)")
	sendCmd.Flags().StringVar(&sendBalance, "balance", "", "known balance in display units, checked against the amount")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation prompt")
	sendCmd.Flags().BoolVar(&sendBiometric, "biometric", false, "unlock with the registered biometric credential")

	_ = sendCmd.MarkFlagRequired("chain")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

func runSend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	id, err := parseChain(sendChain)
	if err != nil {
		return err
	}
	if err := requireSendable(id); err != nil {
		return err
	}

	secrets, kv, closeFn, err := cmdCtx.openSecrets(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	accountID := secretstore.NormalizeAccountID(sendAccount)
	if err := requireAccount(ctx, secrets, accountID); err != nil {
		return err
	}

	if !sendYes && !promptConfirmFn(fmt.Sprintf("Send %s %s to %s?", sendAmount, id.Symbol(), sendTo)) {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "send cancelled")
	}

	var password string
	if sendBiometric {
		password, err = cmdCtx.newGate(kv).Authenticate(ctx)
	} else {
		password, err = readPassword("Enter master password: ")
	}
	if err != nil {
		return err
	}

	progress := cmd.ErrOrStderr()
	svc := transaction.NewService(&transaction.Config{
		Secrets:  secrets,
		Signers:  buildRegistryFn(cmdCtx),
		Logger:   cmdCtx.Log,
		Observer: sendObserver(progress, cmdCtx.Fmt.IsJSON()),
	})

	result, err := svc.Send(ctx, &transaction.SendRequest{
		ChainID:   id,
		AccountID: accountID,
		Password:  password,
		To:        sendTo,
		AmountStr: sendAmount,
		Balance:   sendBalance,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		return writeJSON(w, result)
	}
	output.Success(w, "Sent %s %s", result.Amount, id.Symbol())
	out(w, "Hash: %s\n", result.Hash)
	out(w, "From: %s\n", result.From)
	out(w, "To:   %s\n", result.To)
	if result.Fee != "" {
		out(w, "Fee:  %s %s\n", result.Fee, id.Symbol())
	}
	if result.Balance != "" {
		out(w, "Balance: %s %s\n", result.Balance, id.Symbol())
	}
	return nil
}

// sendObserver prints each state change to w. JSON output stays quiet.
func sendObserver(w io.Writer, quiet bool) transaction.Observer {
	return func(p transaction.Pending) {
		if quiet || p.State == transaction.StateIdle {
			return
		}
		if p.Err != nil {
			out(w, "  %s: %v\n", p.State, p.Err)
			return
		}
		out(w, "  %s\n", p.State)
	}
}

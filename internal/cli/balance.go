package cli

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	"github.com/mrz1836/nopewallet/internal/service/balance"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Balance sources.
const (
	sourceOracle  = "oracle"
	sourceOnChain = "onchain"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// balanceAccount is the account whose addresses are queried.
	balanceAccount string
	// balanceChains is a comma-separated chain filter.
	balanceChains string
	// balanceAddress queries one address without unlocking an account.
	balanceAddress string
	// balanceSource picks the oracle or the chains' own nodes.
	balanceSource string
)

// balanceCmd shows balances across chains.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show balances",
	Long: `Show an account's balance on every chain, or on the chains given with --chain.

Chains are queried concurrently. A chain that fails is reported on its own row
and does not hide the others. The oracle source includes USD values; the
onchain source asks each chain's node directly and has no USD data.`,
	Example: `  nope balance
  nope balance --chain eth,sol --source onchain
  nope balance --chain btc --address bc1q...`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.GroupID = groupFunds

	balanceCmd.Flags().StringVarP(&balanceAccount, "account", "a", secretstore.DefaultAccountID, "account name")
	balanceCmd.Flags().StringVarP(&balanceChains, "chain", "c", "", "comma-separated chains (default: all)")
	_ = balanceCmd.RegisterFlagCompletionFunc("chain", completeChains)
	balanceCmd.Flags().StringVar(&balanceAddress, "address", "", "query this address instead of an account's (needs one --chain)")
	balanceCmd.Flags().StringVar(&balanceSource, "source", sourceOracle, "balance source: oracle, onchain")
}

// balanceRow is one chain's line of output.
type balanceRow struct {
	Chain   chain.ID         `json:"chain"`
	Address string           `json:"address"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
	USD     *decimal.Decimal `json:"usd,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cmdCtx := GetCmdContext(cmd)

	ids, err := parseChains(balanceChains)
	if err != nil {
		return err
	}
	source, err := cmdCtx.balanceSource(balanceSource)
	if err != nil {
		return err
	}

	addresses, err := balanceAddresses(cmd, ids)
	if err != nil {
		return err
	}

	svc := balance.NewService(&balance.Config{
		Source:        source,
		MaxConcurrent: cmdCtx.Cfg.Network.MaxConcurrent,
		Timeout:       cmdCtx.Cfg.Network.Timeout,
		Logger:        cmdCtx.Log,
	})
	results := svc.FetchBalances(ctx, addresses)

	rows := make([]balanceRow, 0, len(results))
	for _, id := range ids {
		r, ok := results[id]
		if !ok {
			continue
		}
		row := balanceRow{Chain: id, Address: r.Address}
		if r.OK() {
			bal := r.Quote.Balance
			row.Balance = &bal
			row.USD = r.Quote.USD
		} else {
			row.Error = r.Err.Error()
		}
		rows = append(rows, row)
	}

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		if err := writeJSON(w, rows); err != nil {
			return err
		}
	} else if err := renderBalances(w, rows); err != nil {
		return err
	}

	if cmdCtx.Cfg.IsVerbose() {
		renderMetrics(cmd.ErrOrStderr(), metrics.Global.Snapshot())
	}
	return nil
}

// balanceSource builds the Source named by --source.
func (c *CommandContext) balanceSource(name string) (balance.Source, error) {
	switch name {
	case "", sourceOracle:
		return balance.NewOracle(c.Cfg.Services.BalanceAPI,
			balance.WithHTTPClient(c.httpClient()),
			balance.WithRetry(retryConfig(c.Cfg)),
		), nil
	case sourceOnChain:
		return balance.NewOnChain(c.balanceReaders(buildRegistryFn(c))), nil
	default:
		return nil, walleterr.WithSuggestion(
			walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"source": name}),
			"use --source oracle or --source onchain",
		)
	}
}

// balanceAddresses returns the address to query on each chain.
func balanceAddresses(cmd *cobra.Command, ids []chain.ID) (map[chain.ID]string, error) {
	if balanceAddress != "" {
		if len(ids) != 1 || balanceChains == "" {
			return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "--address needs exactly one --chain")
		}
		return map[chain.ID]string{ids[0]: balanceAddress}, nil
	}

	addrs, err := accountAddresses(cmd.Context(), GetCmdContext(cmd), balanceAccount)
	if err != nil {
		return nil, err
	}
	wanted := make(map[chain.ID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make(map[chain.ID]string, len(ids))
	for _, a := range addrs {
		if wanted[a.Chain] {
			out[a.Chain] = a.Address
		}
	}
	return out, nil
}

func renderBalances(w io.Writer, rows []balanceRow) error {
	table := output.NewTable(output.Left("CHAIN"), output.Right("BALANCE"), output.Right("USD"), output.Left("ADDRESS"))

	total := decimal.Zero
	priced := false
	for _, r := range rows {
		if r.Balance == nil {
			table.AddRow(r.Chain.String(), "error", "-", r.Error)
			continue
		}
		if r.USD != nil {
			total = total.Add(*r.USD)
			priced = true
		}
		table.AddRow(r.Chain.String(), output.Amount(r.Chain, *r.Balance), output.USD(r.USD), r.Address)
	}
	if err := table.Render(w); err != nil {
		return err
	}
	if priced {
		outln(w)
		out(w, "Total: %s\n", output.USD(&total))
	}
	return nil
}

func renderMetrics(w io.Writer, snap metrics.Snapshot) {
	outln(w)
	out(w, "RPC calls: %d, errors: %d, wallet ops: %d\n", snap.RPCCallsTotal, snap.RPCErrorsTotal, snap.WalletOpsTotal)
	for _, c := range snap.Chains {
		out(w, "  %-6s calls=%d errors=%d avg=%.1fms\n", c.Chain, c.Calls, c.Errors, c.AvgLatencyMs())
	}
}

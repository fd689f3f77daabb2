package cli

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/service/price"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	historyChain string
	historyRange time.Duration
)

// historyCmd shows recent USD prices for a chain's asset.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent prices",
	Long: `Show the USD prices recorded for a chain's asset over a recent window,
with the change from the first point to the last.

The window ends at the newest recorded price.`,
	Example: `  nope history --chain sol
  nope history --chain eth --range 1h -o json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.GroupID = groupFunds

	historyCmd.Flags().StringVarP(&historyChain, "chain", "c", "", "blockchain (required)")
	_ = historyCmd.RegisterFlagCompletionFunc("chain", completeChains)
	historyCmd.Flags().DurationVar(&historyRange, "range", price.DefaultWindow, "window to show, e.g. 10m, 1h, 24h")
	_ = historyCmd.MarkFlagRequired("chain")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cmdCtx := GetCmdContext(cmd)

	id, err := parseChain(historyChain)
	if err != nil {
		return err
	}
	if historyRange <= 0 {
		return walleterr.WithSuggestion(walleterr.ErrInvalidInput, "--range must be positive")
	}

	client := price.NewClient(cmdCtx.Cfg.Services.PriceHistoryAPI, cmdCtx.httpClient())
	points, err := client.ChainHistory(cmd.Context(), id)
	if err != nil {
		return err
	}
	points = price.Window(points, historyRange)
	change, hasChange := price.Change(points)

	w := cmd.OutOrStdout()
	if cmdCtx.Fmt.IsJSON() {
		payload := struct {
			Chain  string           `json:"chain"`
			Asset  string           `json:"asset"`
			Points []price.Point    `json:"points"`
			Change *decimal.Decimal `json:"change_percent,omitempty"`
		}{Chain: id.String(), Asset: price.AssetName(id), Points: points}
		if payload.Points == nil {
			payload.Points = []price.Point{}
		}
		if hasChange {
			payload.Change = &change
		}
		return writeJSON(w, payload)
	}

	if len(points) == 0 {
		out(w, "No prices recorded for %s.\n", id.Symbol())
		return nil
	}

	table := output.NewTable(output.Left("TIME"), output.Right("PRICE"))
	for _, p := range points {
		usd := p.PriceUSD
		table.AddRow(p.RecordedAt.Format(time.RFC3339), output.USD(&usd))
	}
	if err := table.Render(w); err != nil {
		return err
	}
	if hasChange {
		outln(w)
		out(w, "Change: %s\n", output.Percent(change))
	}
	return nil
}

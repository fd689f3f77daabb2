package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/chain/sol"
	"github.com/mrz1836/nopewallet/internal/relay"
	"github.com/mrz1836/nopewallet/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var relayAddr string

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the Solana relay",
	Long: `Run the HTTP relay that signs Solana transfers for clients that cannot
sign locally.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var relayServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the relay until interrupted",
	Long: `Serve POST /solana and GET /healthz until SIGINT or SIGTERM.

The relay is configured from NOPE_RELAY_* environment variables:
  NOPE_RELAY_ADDR             listen address (default :8080)
  NOPE_RELAY_SOLANA_RPC_URL   Solana JSON-RPC endpoint
  NOPE_RELAY_ALLOWED_ORIGINS  comma-separated CORS origins (default *)
  NOPE_RELAY_REQUEST_TIMEOUT  per-request timeout (default 60s)
  NOPE_RELAY_MAX_BODY_BYTES   request body limit (default 65536)`,
	Example: `  nope relay serve
  NOPE_RELAY_SOLANA_RPC_URL=https://rpc.example.com nope relay serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runRelayServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.GroupID = groupTools
	relayCmd.AddCommand(relayServeCmd)
	relayServeCmd.Flags().StringVar(&relayAddr, "addr", "", "listen address (overrides NOPE_RELAY_ADDR)")
	enrichParentLong(relayCmd)
}

func runRelayServe(cmd *cobra.Command, _ []string) error {
	cmdCtx := GetCmdContext(cmd)

	relayCfg, err := relay.LoadConfig()
	if err != nil {
		return err
	}
	if relayAddr != "" {
		relayCfg.Addr = relayAddr
	}

	signer := sol.NewSigner(relayCfg.SolanaRPCURL, sol.WithRetry(retryConfig(cmdCtx.Cfg)), sol.WithLogger(cmdCtx.Log))
	srv := relay.New(relayCfg, signer, cmdCtx.Log, version.Current().Version)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out(cmd.ErrOrStderr(), "relay listening on %s\n", relayCfg.Addr)
	return srv.ListenAndServe(ctx)
}

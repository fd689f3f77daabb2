package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/chain/evm"
	"github.com/mrz1836/nopewallet/internal/chain/sol"
	"github.com/mrz1836/nopewallet/internal/chain/tron"
	"github.com/mrz1836/nopewallet/internal/config"
	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/output"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg *config.Config
	Log *config.Logger
	Fmt *output.Formatter
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(c *config.Config, l *config.Logger, f *output.Formatter) *CommandContext {
	return &CommandContext{Cfg: c, Log: l, Fmt: f}
}

type cmdContextKey struct{}

// SetCmdContext attaches c to the command's context.
func SetCmdContext(cmd *cobra.Command, c *CommandContext) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cmdContextKey{}, c))
}

// GetCmdContext returns the context attached by SetCmdContext, falling back
// to the package globals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if c, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok {
			return c
		}
	}
	return NewCommandContext(cfg, logger, formatter)
}

// Replaced in tests.
//
//nolint:gochecknoglobals // test seams
var (
	openStoreFn        = openStore
	buildRegistryFn    = buildRegistry
	keyringAvailableFn = kvstore.KeyringAvailable
)

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, c *config.Config) (kvstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Storage.Backend {
	case config.BackendSQLite:
		db, err := kvstore.OpenSQLite(ctx, c.StoragePath())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case config.BackendKeyring:
		return kvstore.NewCached(kvstore.NewKeyring(keyringService(c)), kvstore.DefaultCacheSize), noop, nil
	case config.BackendMemory:
		return kvstore.NewMemory(), noop, nil
	default:
		f, err := kvstore.OpenFile(c.StoragePath())
		if err != nil {
			return nil, nil, err
		}
		return f, noop, nil
	}
}

func keyringService(c *config.Config) string {
	if c.Storage.Service != "" {
		return c.Storage.Service
	}
	return kvstore.DefaultKeyringService
}

// openSecrets opens the store and wraps it in the encrypted secret store.
func (c *CommandContext) openSecrets(ctx context.Context) (*secretstore.Store, kvstore.Store, func() error, error) {
	kv, closeFn, err := openStoreFn(ctx, c.Cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []secretstore.Option{
		secretstore.WithPolicy(secretstore.PolicyByName(c.Cfg.Security.PasswordPolicy)),
		secretstore.WithLogger(c.Log),
	}
	if ttl := c.Cfg.SecretTTL(); ttl > 0 {
		opts = append(opts, secretstore.WithSecretTTL(ttl))
	}
	cipher := vaultcrypto.NewAgeCipher(c.Cfg.Security.ScryptWorkFactor)
	return secretstore.New(kv, cipher, opts...), kv, closeFn, nil
}

func (c *CommandContext) httpClient() *http.Client {
	timeout := c.Cfg.Network.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func retryConfig(c *config.Config) chain.RetryConfig {
	retry := chain.DefaultRetryConfig()
	if c.Network.MaxAttempts > 0 {
		retry.MaxAttempts = c.Network.MaxAttempts
	}
	return retry
}

// buildRegistry registers one signer per sendable chain. BTC is receive-only.
func buildRegistry(c *CommandContext) *chain.Registry {
	client := c.httpClient()
	retry := retryConfig(c.Cfg)
	reg := chain.NewRegistry()

	// Validate has already rejected unknown speeds.
	speed, _ := evm.ParseGasSpeed(c.Cfg.Network.GasSpeed)
	for _, id := range chain.EVM() {
		nc, err := c.Cfg.EVM(id)
		if err != nil {
			continue
		}
		reg.Register(id, evm.NewSigner(
			evm.Network{Chain: id, RPCURL: nc.RPC, ChainID: nc.ChainID},
			evm.WithHTTPClient(client),
			evm.WithRetry(retry),
			evm.WithLogger(c.Log),
			evm.WithGasSpeed(speed),
		))
	}

	trx := c.Cfg.Networks.TRX
	reg.Register(chain.TRX, tron.NewSigner(trx.API, trx.APIKey, client, tron.WithRetry(retry), tron.WithLogger(c.Log)))

	if solCfg := c.Cfg.Networks.SOL; solCfg.UseRelay {
		reg.Register(chain.SOL, sol.NewRelaySigner(solCfg.Relay, client, c.Log))
	} else {
		reg.Register(chain.SOL, c.solanaSigner())
	}
	return reg
}

func (c *CommandContext) solanaSigner() *sol.Signer {
	return sol.NewSigner(c.Cfg.Networks.SOL.RPC,
		sol.WithHTTPClient(c.httpClient()),
		sol.WithRetry(retryConfig(c.Cfg)),
		sol.WithLogger(c.Log))
}

// balanceReaders returns the registered signers that can read balances.
// A relayed SOL signer cannot, so SOL then reads through its RPC directly.
func (c *CommandContext) balanceReaders(reg *chain.Registry) map[chain.ID]chain.BalanceReader {
	readers := make(map[chain.ID]chain.BalanceReader)
	for _, id := range reg.IDs() {
		s, err := reg.Signer(id)
		if err != nil {
			continue
		}
		if r, ok := s.(chain.BalanceReader); ok {
			readers[id] = r
		}
	}
	if _, ok := readers[chain.SOL]; !ok {
		readers[chain.SOL] = c.solanaSigner()
	}
	return readers
}

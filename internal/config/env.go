package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/go-sanitize"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// Environment variable names.
const (
	EnvHome           = "NOPE_HOME"
	EnvBalanceAPI     = "NOPE_BALANCE_API"
	EnvPriceAPI       = "NOPE_PRICE_API"
	EnvSolanaRelay    = "NOPE_SOL_RELAY"
	EnvTronAPIKey     = "NOPE_TRX_API_KEY" // #nosec G101 -- false positive, this is a const name not a credential
	EnvStorageBackend = "NOPE_STORAGE_BACKEND"
	EnvOutputFormat   = "NOPE_OUTPUT_FORMAT"
	EnvVerbose        = "NOPE_VERBOSE"
	EnvLogLevel       = "NOPE_LOG_LEVEL"
	EnvTimeout        = "NOPE_TIMEOUT"
	EnvGasSpeed       = "NOPE_GAS_SPEED"
	EnvNoColor        = "NO_COLOR"
)

// RPCEnv returns the override variable for a chain's endpoint, e.g. NOPE_ETH_RPC.
func RPCEnv(id chain.ID) string {
	return "NOPE_" + strings.ToUpper(id.String()) + "_RPC"
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	for _, id := range chain.All() {
		if v := os.Getenv(RPCEnv(id)); v != "" {
			_ = cfg.SetRPC(id, SanitizeURL(v))
		}
	}

	if v := os.Getenv(EnvBalanceAPI); v != "" {
		cfg.Services.BalanceAPI = SanitizeURL(v)
	}

	if v := os.Getenv(EnvPriceAPI); v != "" {
		cfg.Services.PriceHistoryAPI = SanitizeURL(v)
	}

	// Setting a relay opts into it.
	if v := os.Getenv(EnvSolanaRelay); v != "" {
		cfg.Networks.SOL.Relay = SanitizeURL(v)
		cfg.Networks.SOL.UseRelay = true
	}

	if v := os.Getenv(EnvTronAPIKey); v != "" {
		cfg.Networks.TRX.APIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Network.Timeout = d
		}
	}

	if v := os.Getenv(EnvGasSpeed); v != "" {
		cfg.Network.GasSpeed = strings.ToLower(strings.TrimSpace(v))
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}

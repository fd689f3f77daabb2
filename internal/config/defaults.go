package config

import (
	"time"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/chain/evm"
	"github.com/mrz1836/nopewallet/internal/chain/sol"
	"github.com/mrz1836/nopewallet/internal/chain/tron"
	"github.com/mrz1836/nopewallet/internal/service/balance"
	"github.com/mrz1836/nopewallet/internal/service/price"
)

// Storage backends.
const (
	BackendFile    = "file"
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// DefaultTimeout bounds each network call.
const DefaultTimeout = 15 * time.Second

// Defaults returns the default configuration.
func Defaults() *Config {
	nets := evm.DefaultNetworks()
	evmCfg := func(n evm.Network) EVMNetworkConfig {
		return EVMNetworkConfig{RPC: n.RPCURL, ChainID: n.ChainID}
	}

	return &Config{
		Version: 1,
		Home:    "~/.nope",
		Networks: NetworksConfig{
			ETH:  evmCfg(nets[chain.ETH]),
			BNB:  evmCfg(nets[chain.BNB]),
			AVAX: evmCfg(nets[chain.AVAX]),
			BASE: evmCfg(nets[chain.BASE]),
			POL:  evmCfg(nets[chain.POL]),
			TRX:  TronNetworkConfig{API: tron.DefaultBaseURL},
			SOL:  SolanaNetworkConfig{RPC: sol.DefaultRPCURL},
		},
		Network: NetworkConfig{
			Timeout:       DefaultTimeout,
			MaxConcurrent: balance.DefaultMaxConcurrent,
			MaxAttempts:   3,
			GasSpeed:      string(evm.GasSpeedMedium),
		},
		Services: ServicesConfig{
			BalanceAPI:      balance.DefaultOracleURL,
			PriceHistoryAPI: price.DefaultHistoryURL,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Security: SecurityConfig{
			PasswordPolicy:   "shared",
			SecretTTLSeconds: 60,
			ScryptWorkFactor: 18,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.nope/nope.log",
		},
	}
}

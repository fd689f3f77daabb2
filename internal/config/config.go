// Package config provides configuration management for nopewallet.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/fileutil"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Networks NetworksConfig `yaml:"networks"`
	Network  NetworkConfig  `yaml:"network"`
	Services ServicesConfig `yaml:"services"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworksConfig holds per-chain endpoints.
type NetworksConfig struct {
	ETH  EVMNetworkConfig    `yaml:"eth"`
	BNB  EVMNetworkConfig    `yaml:"bnb"`
	AVAX EVMNetworkConfig    `yaml:"avax"`
	BASE EVMNetworkConfig    `yaml:"base"`
	POL  EVMNetworkConfig    `yaml:"pol"`
	TRX  TronNetworkConfig   `yaml:"trx"`
	SOL  SolanaNetworkConfig `yaml:"sol"`
}

// EVMNetworkConfig defines one EVM chain.
type EVMNetworkConfig struct {
	RPC     string `yaml:"rpc" valid:"url,required"`
	ChainID int64  `yaml:"chain_id"`
}

// TronNetworkConfig defines the TronGrid endpoint.
type TronNetworkConfig struct {
	API    string `yaml:"api" valid:"url,required"`
	APIKey string `yaml:"api_key,omitempty"`
}

// SolanaNetworkConfig defines the Solana endpoint. With UseRelay set, sends
// go through Relay instead of being signed locally.
type SolanaNetworkConfig struct {
	RPC      string `yaml:"rpc" valid:"url,required"`
	Relay    string `yaml:"relay,omitempty" valid:"url,optional"`
	UseRelay bool   `yaml:"use_relay"`
}

// NetworkConfig defines transport settings shared by every client.
type NetworkConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxAttempts   int           `yaml:"max_attempts"`
	// GasSpeed scales the node's EVM gas price: slow, medium or fast.
	GasSpeed string `yaml:"gas_speed"`
}

// ServicesConfig defines the balance oracle and price history endpoints.
type ServicesConfig struct {
	BalanceAPI      string `yaml:"balance_api" valid:"url,required"`
	PriceHistoryAPI string `yaml:"price_history_api" valid:"url,required"`
}

// StorageConfig selects the key/value backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
	Service string `yaml:"keyring_service,omitempty"`
}

// SecurityConfig defines secret handling settings.
type SecurityConfig struct {
	PasswordPolicy   string `yaml:"password_policy"`
	SecretTTLSeconds int    `yaml:"secret_ttl_seconds"`
	ScryptWorkFactor int    `yaml:"scrypt_work_factor"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file over Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Defaults when it does not exist.
// Environment overrides are applied and the result is validated.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg, err = Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	ApplyEnvironment(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nope"
	}
	return filepath.Join(home, ".nope")
}

// HomeDir returns Home with "~" expanded.
func (c *Config) HomeDir() string {
	home, err := fileutil.ExpandHome(c.Home)
	if err != nil {
		return c.Home
	}
	return home
}

// StoragePath returns the backend's file, relative paths resolved under home.
func (c *Config) StoragePath() string {
	p := c.Storage.Path
	if p == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			p = "wallet.db"
		default:
			p = "wallet.json"
		}
	}
	if strings.HasPrefix(p, "~") {
		if expanded, err := fileutil.ExpandHome(p); err == nil {
			return expanded
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.HomeDir(), p)
}

// LogFile returns the log file with "~" expanded.
func (c *Config) LogFile() string {
	if c.Logging.File == "" {
		return ""
	}
	p, err := fileutil.ExpandHome(c.Logging.File)
	if err != nil {
		return c.Logging.File
	}
	return p
}

// EVM returns the config of an EVM chain.
func (c *Config) EVM(id chain.ID) (EVMNetworkConfig, error) {
	switch id {
	case chain.ETH:
		return c.Networks.ETH, nil
	case chain.BNB:
		return c.Networks.BNB, nil
	case chain.AVAX:
		return c.Networks.AVAX, nil
	case chain.BASE:
		return c.Networks.BASE, nil
	case chain.POL:
		return c.Networks.POL, nil
	}
	return EVMNetworkConfig{}, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": id.String()})
}

// SetRPC overrides a chain's endpoint.
func (c *Config) SetRPC(id chain.ID, url string) error {
	switch id {
	case chain.ETH:
		c.Networks.ETH.RPC = url
	case chain.BNB:
		c.Networks.BNB.RPC = url
	case chain.AVAX:
		c.Networks.AVAX.RPC = url
	case chain.BASE:
		c.Networks.BASE.RPC = url
	case chain.POL:
		c.Networks.POL.RPC = url
	case chain.TRX:
		c.Networks.TRX.API = url
	case chain.SOL:
		c.Networks.SOL.RPC = url
	default:
		return fmt.Errorf("%w: %s has no rpc setting", walleterr.ErrUnsupportedChain, id)
	}
	return nil
}

// SecretTTL returns how long a decrypted mnemonic may live.
func (c *Config) SecretTTL() time.Duration {
	return time.Duration(c.Security.SecretTTLSeconds) * time.Second
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/kelseyhightower/envconfig"

	"github.com/mrz1836/nopewallet/internal/chain/sol"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// EnvPrefix prefixes every relay environment variable.
const EnvPrefix = "NOPE_RELAY"

// Config is the relay's environment configuration.
type Config struct {
	Addr           string        `envconfig:"ADDR" default:":8080" valid:"required"`
	SolanaRPCURL   string        `envconfig:"SOLANA_RPC_URL" valid:"url,required"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	MaxBodyBytes   int64         `envconfig:"MAX_BODY_BYTES" default:"65536"`
}

// LoadConfig reads NOPE_RELAY_* variables.
func LoadConfig() (Config, error) {
	cfg := Config{SolanaRPCURL: sol.DefaultRPCURL}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, walleterr.WithCause(walleterr.ErrConfigInvalid, fmt.Errorf("processing relay config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field formats and ranges.
func (c Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}
	if c.RequestTimeout <= 0 {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"request_timeout": c.RequestTimeout.String()})
	}
	if c.MaxBodyBytes <= 0 {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"max_body_bytes": fmt.Sprint(c.MaxBodyBytes)})
	}
	for _, o := range c.AllowedOrigins {
		if o != "*" && !govalidator.IsURL(strings.TrimSpace(o)) {
			return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"allowed_origin": o})
		}
	}
	return nil
}

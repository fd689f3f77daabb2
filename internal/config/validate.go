package config

import (
	"fmt"

	"github.com/asaskevich/govalidator"

	"github.com/mrz1836/nopewallet/internal/chain/evm"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Validate checks endpoints and enumerated settings.
func (c *Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}

	invalid := func(field, value string) error {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{field: value})
	}

	if c.Networks.SOL.UseRelay && c.Networks.SOL.Relay == "" {
		return walleterr.WithSuggestion(invalid("networks.sol.relay", ""), "set a relay URL or disable use_relay")
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendKeyring, BackendMemory:
	default:
		return invalid("storage.backend", c.Storage.Backend)
	}

	switch c.Security.PasswordPolicy {
	case "shared", "per-account":
	default:
		return invalid("security.password_policy", c.Security.PasswordPolicy)
	}

	if c.Network.Timeout <= 0 {
		return invalid("network.timeout", c.Network.Timeout.String())
	}
	if c.Network.MaxConcurrent < 1 {
		return invalid("network.max_concurrent", fmt.Sprint(c.Network.MaxConcurrent))
	}
	if _, err := evm.ParseGasSpeed(c.Network.GasSpeed); err != nil {
		return invalid("network.gas_speed", c.Network.GasSpeed)
	}
	if c.Security.SecretTTLSeconds < 0 {
		return invalid("security.secret_ttl_seconds", fmt.Sprint(c.Security.SecretTTLSeconds))
	}

	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", c.Output.DefaultFormat)
	}
	return nil
}

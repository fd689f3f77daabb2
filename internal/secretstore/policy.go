package secretstore

import (
	"context"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// OpenFunc reports whether password decrypts an account's secret.
type OpenFunc func(ctx context.Context, accountID, password string) bool

// PasswordPolicy decides whether a new account's password is acceptable
// given the accounts already on the device.
type PasswordPolicy interface {
	Verify(ctx context.Context, existing []string, password string, opens OpenFunc) error
}

// SharedPasswordPolicy enforces one master password per device: a supplied
// password must open at least one existing account. It tries every account,
// so the cost is O(accounts) decryptions. An empty password skips the check.
type SharedPasswordPolicy struct{}

// Verify implements PasswordPolicy.
func (SharedPasswordPolicy) Verify(ctx context.Context, existing []string, password string, opens OpenFunc) error {
	if password == "" || len(existing) == 0 {
		return nil
	}
	for _, id := range existing {
		if opens(ctx, id, password) {
			return nil
		}
	}
	return walleterr.ErrPasswordMismatch
}

// PerAccountPasswordPolicy lets every account carry its own password.
type PerAccountPasswordPolicy struct{}

// Verify implements PasswordPolicy.
func (PerAccountPasswordPolicy) Verify(context.Context, []string, string, OpenFunc) error {
	return nil
}

// PolicyByName maps a config value to a policy. Unknown names get the shared policy.
func PolicyByName(name string) PasswordPolicy {
	if name == "per-account" {
		return PerAccountPasswordPolicy{}
	}
	return SharedPasswordPolicy{}
}

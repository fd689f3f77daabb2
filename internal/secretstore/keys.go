package secretstore

import (
	"fmt"
	"strings"
	"unicode"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Persisted key layout. These names are part of the backup format.
const (
	// LegacyKey holds the single un-namespaced account of older wallets.
	LegacyKey = "encryptedMnemonic"
	// IndexKey holds the JSON array of known account ids.
	IndexKey = LegacyKey + ":index"
	// DefaultAccountID is the id used when none is given.
	DefaultAccountID = "account1"
	// BiometricSentinel encrypts mnemonics saved without a password.
	BiometricSentinel = "biometric-key"

	accountPrefix = LegacyKey + ":"
	autoIDPrefix  = "account"
	maxIDLength   = 64
)

// NormalizeAccountID trims and lowercases an id. An empty id means DefaultAccountID.
func NormalizeAccountID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return DefaultAccountID
	}
	return id
}

// ValidateAccountID rejects ids that would break the key layout.
func ValidateAccountID(id string) error {
	if len(id) > maxIDLength {
		return walleterr.WithDetails(walleterr.ErrInvalidAccountName, map[string]string{
			"max_length": fmt.Sprint(maxIDLength),
		})
	}
	if id == "index" {
		return walleterr.WithSuggestion(walleterr.ErrInvalidAccountName, "'index' is reserved")
	}
	for _, r := range id {
		if r == ':' || unicode.IsControl(r) || unicode.IsSpace(r) {
			return walleterr.WithSuggestion(walleterr.ErrInvalidAccountName,
				"account names cannot contain whitespace or colons")
		}
	}
	return nil
}

// StorageKey returns the namespaced key for an account's encrypted mnemonic.
func StorageKey(id string) string {
	return accountPrefix + NormalizeAccountID(id)
}

// IsSecretKey reports whether key holds an encrypted mnemonic.
func IsSecretKey(key string) bool {
	return key == LegacyKey || (strings.HasPrefix(key, accountPrefix) && key != IndexKey)
}

func autoAccountID(n int) string {
	return fmt.Sprintf("%s%d", autoIDPrefix, n)
}

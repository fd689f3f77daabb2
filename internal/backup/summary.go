package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/mrz1836/nopewallet/internal/biometric"
	"github.com/mrz1836/nopewallet/internal/secretstore"
)

// Summary describes what a backup holds, without decrypting anything.
type Summary struct {
	// Keys is the number of entries.
	Keys int `json:"keys"`

	// Accounts are the ids listed in the account index.
	Accounts []string `json:"accounts"`

	// Legacy is set when the un-namespaced account is present.
	Legacy bool `json:"legacy"`

	// Biometric is set when a biometric credential is included.
	Biometric bool `json:"biometric"`

	// Checksum is the SHA256 of the canonical entries.
	Checksum string `json:"checksum"`

	// Removed counts keys a Replace import deleted.
	Removed int `json:"removed,omitempty"`

	// Kept counts local secrets a Merge import left in place because the
	// backup held different content under the same key.
	Kept int `json:"kept,omitempty"`

	keys []string
}

// Summarize inspects parsed entries.
func Summarize(entries map[string]string) *Summary {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := &Summary{Keys: len(keys), keys: keys}
	if raw, ok := entries[secretstore.IndexKey]; ok {
		if ids, err := secretstore.ParseIndex(raw); err == nil {
			s.Accounts = secretstore.SortedAccounts(ids)
		}
	}
	_, s.Legacy = entries[secretstore.LegacyKey]
	_, s.Biometric = entries[biometric.CredentialIDKey]
	s.Checksum = checksum(keys, entries)
	return s
}

// checksum hashes key/value pairs in sorted order so equal stores hash equal.
func checksum(keys []string, entries map[string]string) string {
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(entries[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Describe renders a one-line summary for terminals.
func (s *Summary) Describe() string {
	var b strings.Builder
	b.WriteString(pluralize(s.Keys, "key"))
	b.WriteString(", ")
	b.WriteString(pluralize(len(s.Accounts), "account"))
	if s.Legacy {
		b.WriteString(", legacy account")
	}
	if s.Biometric {
		b.WriteString(", biometric credential")
	}
	return b.String()
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

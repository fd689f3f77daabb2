// Package backup exports and restores the whole key/value namespace as one
// flat JSON object. Secrets in it are already ciphertext.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrz1836/nopewallet/internal/fileutil"
	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/secretstore"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// FilePermissions is the mode backup files are written with.
const FilePermissions = 0o600

// Mode selects how Import treats keys already in the store.
type Mode int

const (
	// Merge adds the backup's keys and keeps the rest. Stored secrets are
	// never replaced and the account indexes are combined.
	Merge Mode = iota
	// Replace removes every key the backup does not contain.
	Replace
)

// String returns the flag spelling of the mode.
func (m Mode) String() string {
	if m == Replace {
		return "replace"
	}
	return "merge"
}

// ParseMode accepts "merge" (or empty) and "replace".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "merge":
		return Merge, nil
	case "replace":
		return Replace, nil
	}
	return Merge, walleterr.WithDetails(walleterr.ErrInvalidInput, map[string]string{"mode": s})
}

// ImportOptions configures Import.
type ImportOptions struct {
	Mode Mode
	// DryRun parses and summarizes without writing.
	DryRun bool
}

// Export writes every entry of kv as an indented JSON object.
func Export(ctx context.Context, kv kvstore.Store) ([]byte, error) {
	entries, err := kvstore.Snapshot(ctx, kv)
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing backup: %w", err)
	}
	return data, nil
}

// Parse decodes a backup. Anything but an object of string values is corrupted.
func Parse(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, walleterr.WithSuggestion(walleterr.ErrBackupCorrupted, "a backup is a JSON object of key to string")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrBackupCorrupted, err)
	}

	entries := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if len(v) == 0 || v[0] != '"' || json.Unmarshal(v, &s) != nil {
			return nil, walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{"key": k})
		}
		entries[k] = s
	}
	return entries, nil
}

// Import restores data into kv key-for-key.
func Import(ctx context.Context, kv kvstore.Store, data []byte, opts ImportOptions) (*Summary, error) {
	entries, err := Parse(data)
	if err != nil {
		return nil, err
	}

	summary := Summarize(entries)
	if opts.DryRun {
		return summary, nil
	}

	if opts.Mode == Replace {
		existing, err := kv.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing keys: %w", err)
		}
		for _, k := range existing {
			if _, keep := entries[k]; keep {
				continue
			}
			if err := kv.Delete(ctx, k); err != nil {
				return nil, fmt.Errorf("removing %s: %w", k, err)
			}
			summary.Removed++
		}
	}

	for _, k := range summary.keys {
		value := entries[k]
		if opts.Mode == Merge {
			var skip bool
			value, skip, err = mergeValue(ctx, kv, k, value)
			if err != nil {
				return nil, err
			}
			if skip {
				summary.Kept++
				continue
			}
		}
		if err := kv.Set(ctx, k, value); err != nil {
			return nil, fmt.Errorf("restoring %s: %w", k, err)
		}
	}
	return summary, nil
}

// mergeValue decides what Merge writes for key. A secret that already exists
// locally with other content is kept, and the account index becomes the union
// of both lists.
func mergeValue(ctx context.Context, kv kvstore.Store, key, incoming string) (string, bool, error) {
	local, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok {
		return incoming, false, nil
	}

	switch {
	case key == secretstore.IndexKey:
		localIDs, err := secretstore.ParseIndex(local)
		if err != nil {
			return "", false, walleterr.WithCause(walleterr.ErrStoreCorrupted, err)
		}
		incomingIDs, err := secretstore.ParseIndex(incoming)
		if err != nil {
			return "", false, walleterr.WithDetails(walleterr.ErrBackupCorrupted, map[string]string{"key": key})
		}
		raw, err := json.Marshal(secretstore.MergeIndex(localIDs, incomingIDs))
		if err != nil {
			return "", false, err
		}
		return string(raw), false, nil
	case secretstore.IsSecretKey(key) && local != incoming:
		return "", true, nil
	}
	return incoming, false, nil
}

// WriteFile writes a backup atomically with FilePermissions.
func WriteFile(path string, data []byte) error {
	if err := fileutil.WriteAtomic(path, data, FilePermissions); err != nil {
		return fmt.Errorf("writing backup file: %w", err)
	}
	return nil
}

// ReadFile reads a backup file. A missing file is ErrNotFound.
func ReadFile(path string) ([]byte, error) {
	data, err := fileutil.ReadIfExists(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, walleterr.WithDetails(walleterr.ErrNotFound, map[string]string{"path": path})
	}
	return data, nil
}

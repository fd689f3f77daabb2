// Package secretstore maps account ids to encrypted mnemonics over an
// injected key/value store.
//
// Writes follow read-index, mutate, write-index. Concurrent writers are not
// expected; a mutex serializes writers within one process.
package secretstore

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrz1836/nopewallet/internal/kvstore"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// LogWriter is the narrow logging capability the store needs.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Account identifies one stored mnemonic.
type Account struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Store is the encrypted secret store.
type Store struct {
	kv     kvstore.Store
	cipher vaultcrypto.Cipher
	policy PasswordPolicy
	ttl    time.Duration
	log    LogWriter

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy replaces the default SharedPasswordPolicy.
func WithPolicy(p PasswordPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithSecretTTL replaces the 30 second plaintext lifetime of loaded secrets.
func WithSecretTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithLogger sets the logger. Secrets are never passed to it.
func WithLogger(l LogWriter) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a store over kv using cipher for every blob.
func New(kv kvstore.Store, cipher vaultcrypto.Cipher, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		cipher: cipher,
		policy: SharedPasswordPolicy{},
		ttl:    vaultcrypto.DefaultSecretTTL,
		log:    nopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates, encrypts and persists mnemonic under accountID, or under the
// first free "account<N>" when accountID is empty. An empty password encrypts
// under BiometricSentinel.
func (s *Store) Save(ctx context.Context, mnemonic, password, accountID string) (Account, error) {
	if err := wallet.ValidateMnemonic(mnemonic); err != nil {
		return Account{}, err
	}
	phrase := []byte(wallet.NormalizeMnemonicInput(mnemonic))
	defer vaultcrypto.Zero(phrase)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListAccounts(ctx)
	if err != nil {
		return Account{}, err
	}

	id, err := s.chooseID(ctx, existing, accountID)
	if err != nil {
		return Account{}, err
	}

	if len(existing) > 0 {
		if err := s.policy.Verify(ctx, existing, password, s.opens); err != nil {
			return Account{}, err
		}
		if err := s.checkDuplicate(ctx, existing, password, phrase); err != nil {
			return Account{}, err
		}
	}

	blob, err := s.cipher.Seal(phrase, effectivePassword(password))
	if err != nil {
		return Account{}, fmt.Errorf("encrypting mnemonic: %w", err)
	}

	key := StorageKey(id)
	if err := s.kv.Set(ctx, key, blob); err != nil {
		return Account{}, fmt.Errorf("storing mnemonic: %w", err)
	}
	if err := s.writeIndex(ctx, append(existing, id)); err != nil {
		// The blob is new, so removing it restores the previous state.
		if delErr := s.kv.Delete(ctx, key); delErr != nil {
			s.log.Error("orphaned blob for %s: %v", id, delErr)
		}
		return Account{}, err
	}

	s.log.Debug("saved account %s", id)
	return Account{ID: id, Key: key}, nil
}

// Load decrypts the mnemonic of accountID. A wrong password or a missing
// account yields (nil, nil). The returned secret erases itself after the
// store's TTL; callers should Destroy it as soon as they are done.
func (s *Store) Load(ctx context.Context, accountID, password string) (*vaultcrypto.ScopedSecret, error) {
	plaintext, err := s.decrypt(ctx, accountID, password)
	if walleterr.Is(err, walleterr.ErrWrongPassword) || walleterr.Is(err, walleterr.ErrNotFound) {
		s.log.Debug("load %s: %v", NormalizeAccountID(accountID), walleterr.Code(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vaultcrypto.NewScopedSecret(plaintext, s.ttl), nil
}

// Clear deletes an account's blob and removes it from the index. Clearing the
// default account also removes a legacy blob.
func (s *Store) Clear(ctx context.Context, accountID string) error {
	id := NormalizeAccountID(accountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, StorageKey(id)); err != nil {
		return fmt.Errorf("deleting mnemonic: %w", err)
	}
	if id == DefaultAccountID {
		if err := s.kv.Delete(ctx, LegacyKey); err != nil {
			return fmt.Errorf("deleting legacy mnemonic: %w", err)
		}
	}

	ids, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if err := s.writeIndex(ctx, kept); err != nil {
		return err
	}

	s.log.Debug("cleared account %s", id)
	return nil
}

// ListAccounts returns the account index. With an empty index and a legacy
// blob present it returns the default account.
func (s *Store) ListAccounts(ctx context.Context) ([]string, error) {
	ids, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}

	_, ok, err := s.kv.Get(ctx, LegacyKey)
	if err != nil {
		return nil, fmt.Errorf("reading legacy mnemonic: %w", err)
	}
	if ok {
		return []string{DefaultAccountID}, nil
	}
	return []string{}, nil
}

// Has reports whether a blob exists for accountID without decrypting it.
func (s *Store) Has(ctx context.Context, accountID string) (bool, error) {
	_, ok, err := s.blob(ctx, accountID)
	return ok, err
}

// chooseID picks the id for a new secret. An id is taken when it is indexed
// or when a blob is already stored under it; stored blobs are never replaced.
func (s *Store) chooseID(ctx context.Context, existing []string, requested string) (string, error) {
	indexed := make(map[string]bool, len(existing))
	for _, id := range existing {
		indexed[id] = true
	}
	taken := func(id string) (bool, error) {
		if indexed[id] {
			return true, nil
		}
		_, ok, err := s.kv.Get(ctx, StorageKey(id))
		if err != nil {
			return false, fmt.Errorf("reading mnemonic: %w", err)
		}
		return ok, nil
	}

	if requested == "" {
		for n := 1; ; n++ {
			id := autoAccountID(n)
			used, err := taken(id)
			if err != nil {
				return "", err
			}
			if !used {
				return id, nil
			}
		}
	}

	id := NormalizeAccountID(requested)
	if err := ValidateAccountID(id); err != nil {
		return "", err
	}
	used, err := taken(id)
	if err != nil {
		return "", err
	}
	if used {
		return "", walleterr.WithDetails(walleterr.ErrAccountNameConflict, map[string]string{"account": id})
	}
	return id, nil
}

// checkDuplicate compares phrase against every secret readable with password
// or the sentinel. Secrets under other passwords cannot be compared.
func (s *Store) checkDuplicate(ctx context.Context, existing []string, password string, phrase []byte) error {
	candidates := []string{effectivePassword(password)}
	if password != "" {
		candidates = append(candidates, BiometricSentinel)
	}

	for _, id := range existing {
		for _, pw := range candidates {
			other, err := s.decrypt(ctx, id, pw)
			if err != nil {
				continue
			}
			same := subtle.ConstantTimeCompare(other, phrase) == 1
			vaultcrypto.Zero(other)
			if same {
				return walleterr.WithDetails(walleterr.ErrDuplicateMnemonic, map[string]string{"account": id})
			}
			break
		}
	}
	return nil
}

// opens reports whether password decrypts accountID.
func (s *Store) opens(ctx context.Context, accountID, password string) bool {
	plaintext, err := s.decrypt(ctx, accountID, password)
	if err != nil {
		return false
	}
	vaultcrypto.Zero(plaintext)
	return true
}

func (s *Store) decrypt(ctx context.Context, accountID, password string) ([]byte, error) {
	blob, ok, err := s.blob(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, walleterr.ErrNotFound
	}

	plaintext, err := s.cipher.Open(blob, effectivePassword(password))
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrWrongPassword, err)
	}
	if len(plaintext) == 0 {
		return nil, walleterr.ErrWrongPassword
	}
	return plaintext, nil
}

// blob reads the namespaced blob, falling back to the legacy key for the default account.
func (s *Store) blob(ctx context.Context, accountID string) (string, bool, error) {
	id := NormalizeAccountID(accountID)
	v, ok, err := s.kv.Get(ctx, StorageKey(id))
	if err != nil {
		return "", false, fmt.Errorf("reading mnemonic: %w", err)
	}
	if ok || id != DefaultAccountID {
		return v, ok, nil
	}

	v, ok, err = s.kv.Get(ctx, LegacyKey)
	if err != nil {
		return "", false, fmt.Errorf("reading legacy mnemonic: %w", err)
	}
	return v, ok, nil
}

func (s *Store) readIndex(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, IndexKey)
	if err != nil {
		return nil, fmt.Errorf("reading account index: %w", err)
	}
	if !ok {
		return []string{}, nil
	}

	ids, err := ParseIndex(raw)
	if err != nil {
		s.log.Error("account index is not a JSON array: %v", err)
		return nil, walleterr.WithSuggestion(walleterr.WithCause(walleterr.ErrStoreCorrupted, err),
			"restore the account index from a backup")
	}
	return ids, nil
}

// ParseIndex decodes a stored account index, dropping empty and repeated ids.
func ParseIndex(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	return dedupe(ids), nil
}

// MergeIndex keeps local order and appends incoming ids not yet present.
func MergeIndex(local, incoming []string) []string {
	return dedupe(append(append([]string(nil), local...), incoming...))
}

func (s *Store) writeIndex(ctx context.Context, ids []string) error {
	raw, err := json.Marshal(dedupe(ids))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, IndexKey, string(raw)); err != nil {
		return fmt.Errorf("writing account index: %w", err)
	}
	return nil
}

// dedupe drops empty and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SortedAccounts returns ids in lexical order, for display.
func SortedAccounts(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func effectivePassword(password string) string {
	if password == "" {
		return BiometricSentinel
	}
	return password
}

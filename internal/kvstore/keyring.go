package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
	"github.com/zyedidia/generic/mapset"
)

// DefaultKeyringService is the OS keychain service name entries are filed under.
const DefaultKeyringService = "nopewallet"

// keyringIndexUser holds the JSON list of keys; the OS keychain cannot enumerate.
const keyringIndexUser = "__index__"

// Keyring is a Store backed by the OS keychain (macOS Keychain, Secret
// Service, Windows Credential Manager).
type Keyring struct {
	mu      sync.Mutex
	service string
}

// NewKeyring creates a keychain store for service.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	return &Keyring{service: service}
}

// Get implements Store.
func (k *Keyring) Get(_ context.Context, key string) (string, bool, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring get: %w", err)
	}
	return v, true, nil
}

// Set implements Store.
func (k *Keyring) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}

	index, err := k.index()
	if err != nil {
		return err
	}
	if index.Has(key) {
		return nil
	}
	index.Put(key)
	return k.writeIndex(index)
}

// Delete implements Store.
func (k *Keyring) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}

	index, err := k.index()
	if err != nil {
		return err
	}
	if !index.Has(key) {
		return nil
	}
	index.Remove(key)
	return k.writeIndex(index)
}

// Keys implements Store.
func (k *Keyring) Keys(_ context.Context) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	index, err := k.index()
	if err != nil {
		return nil, err
	}
	return setKeys(index), nil
}

func (k *Keyring) index() (mapset.Set[string], error) {
	index := mapset.New[string]()
	raw, err := keyring.Get(k.service, keyringIndexUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return index, nil
	}
	if err != nil {
		return index, fmt.Errorf("keyring index: %w", err)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return index, fmt.Errorf("keyring index corrupted: %w", err)
	}
	for _, key := range keys {
		index.Put(key)
	}
	return index, nil
}

func (k *Keyring) writeIndex(index mapset.Set[string]) error {
	raw, err := json.Marshal(setKeys(index))
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, keyringIndexUser, string(raw)); err != nil {
		return fmt.Errorf("keyring index: %w", err)
	}
	return nil
}

func setKeys(set mapset.Set[string]) []string {
	keys := make([]string, 0, set.Size())
	set.Each(func(key string) {
		keys = append(keys, key)
	})
	sort.Strings(keys)
	return keys
}

// KeyringAvailable reports whether the OS keychain accepts a round trip.
func KeyringAvailable(service string) bool {
	const checkUser = "__nope_check__"
	if err := keyring.Set(service, checkUser, "ok"); err != nil {
		return false
	}
	v, err := keyring.Get(service, checkUser)
	_ = keyring.Delete(service, checkUser)
	return err == nil && v == "ok"
}

package kvstore

import (
	"context"
	"sync"

	"github.com/zyedidia/generic/cache"
)

// DefaultCacheSize bounds the read cache in front of slow backends.
const DefaultCacheSize = 256

// Cached is a read-through LRU in front of another Store, typically the OS
// keychain. Misses are not cached.
type Cached struct {
	next Store

	mu    sync.Mutex
	cache *cache.Cache[string, string]
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Store, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cached{next: next, cache: cache.New[string, string](size)}
}

// Get implements Store.
func (c *Cached) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	v, ok := c.cache.Get(key)
	c.mu.Unlock()
	if ok {
		return v, true, nil
	}

	v, ok, err := c.next.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}

	c.mu.Lock()
	c.cache.Put(key, v)
	c.mu.Unlock()
	return v, true, nil
}

// Set implements Store.
func (c *Cached) Set(ctx context.Context, key, value string) error {
	if err := c.next.Set(ctx, key, value); err != nil {
		c.evict(key)
		return err
	}
	c.mu.Lock()
	c.cache.Put(key, value)
	c.mu.Unlock()
	return nil
}

// Delete implements Store.
func (c *Cached) Delete(ctx context.Context, key string) error {
	c.evict(key)
	return c.next.Delete(ctx, key)
}

// Keys implements Store. Enumeration always goes to the backend.
func (c *Cached) Keys(ctx context.Context) ([]string, error) {
	return c.next.Keys(ctx)
}

func (c *Cached) evict(key string) {
	c.mu.Lock()
	c.cache.Remove(key)
	c.mu.Unlock()
}

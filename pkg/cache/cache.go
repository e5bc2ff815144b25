// Package cache stores computed wiki payloads and guarantees that, for a
// given key, only one caller computes a missing value at a time.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key. The boolean reports whether a live
	// entry exists; an empty value with true is a valid entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Locker provides mutual exclusion per key.
type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done. The
	// returned function releases the lock.
	Lock(ctx context.Context, key string) (func(), error)
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache combines a Store and a Locker into a read-through cache.
type Cache struct {
	store  Store
	locker Locker
	group  singleflight.Group
	logger hclog.Logger
}

// New creates a cache. A nil locker falls back to an in-process keyed
// mutex, which only protects callers sharing this Cache.
func New(store Store, locker Locker, logger hclog.Logger) *Cache {
	if locker == nil {
		locker = NewMutexLocker()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Cache{
		store:  store,
		locker: locker,
		logger: logger.Named("cache"),
	}
}

// Remember returns the cached value for key, computing and storing it when
// absent. Concurrent callers for the same key share one computation, and
// the key's lock is held while computing so other processes wait too.
// Errors from compute are returned to every waiting caller and are never
// stored.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	if ok {
		c.logger.Trace("cache hit", "key", key)
		return value, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.fill(ctx, key, ttl, compute)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Trace("shared in-flight computation", "key", key)
	}
	return v.([]byte), nil
}

func (c *Cache) fill(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	unlock, err := c.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	defer unlock()

	// Another process may have filled the key while we waited.
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	if ok {
		return value, nil
	}

	c.logger.Debug("cache miss, computing", "key", key)
	value, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}

	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		return nil, fmt.Errorf("cache set %s: %w", key, err)
	}
	return value, nil
}

// Forget removes key from the store.
func (c *Cache) Forget(ctx context.Context, key string) error {
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	c.logger.Debug("forgot key", "key", key)
	return nil
}

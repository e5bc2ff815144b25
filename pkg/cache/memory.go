package cache

import (
	"bytes"
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the default number of entries kept in memory.
const DefaultMemorySize = 10000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a size-bounded in-process Store.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryStore creates a memory store holding at most size entries.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, _ := lru.New[string, memoryEntry](size)
	return &MemoryStore{
		entries: entries,
		now:     time.Now,
	}
}

// Get returns a live entry.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores a copy of value until ttl elapses. A nil value is stored as
// an empty entry.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := bytes.Clone(value)
	if stored == nil {
		stored = []byte{}
	}
	m.entries.Add(key, memoryEntry{
		value:     stored,
		expiresAt: m.now().Add(ttl),
	})
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (m *MemoryStore) Len() int {
	return m.entries.Len()
}

var _ Locker = (*MutexLocker)(nil)

// MutexLocker is an in-process Locker with one mutex per held key.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMutexLocker creates an in-process locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*keyLock)}
}

// Lock acquires the lock for key.
func (l *MutexLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *MutexLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

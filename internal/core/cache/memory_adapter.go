package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired entries are evicted from a MemoryAdapter.
const DefaultCleanupInterval = time.Minute

// MemoryAdapter is an in-process Cache used when no Redis URL is configured.
// A background janitor evicts expired entries.
type MemoryAdapter struct {
	items *gocache.Cache
}

// NewMemoryAdapter creates an empty in-process cache swept every DefaultCleanupInterval.
func NewMemoryAdapter() *MemoryAdapter {
	return newMemoryAdapter(DefaultCleanupInterval)
}

func newMemoryAdapter(cleanup time.Duration) *MemoryAdapter {
	return &MemoryAdapter{items: gocache.New(gocache.NoExpiration, cleanup)}
}

// expiration maps a non-positive ttl to "never expires", matching Redis.
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

// Get retrieves a copy of the cached value.
func (m *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	raw, ok := m.items.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	return append([]byte(nil), raw.([]byte)...), nil
}

// Set stores a copy of value under key.
func (m *MemoryAdapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.items.Set(key, append([]byte(nil), value...), expiration(ttl))
	return nil
}

// SetNX stores value only if key is absent or expired.
func (m *MemoryAdapter) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := m.items.Add(key, append([]byte(nil), value...), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes key.
func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Ping always succeeds.
func (m *MemoryAdapter) Ping(context.Context) error { return nil }

// Close drops every entry.
func (m *MemoryAdapter) Close() error {
	m.items.Flush()
	return nil
}

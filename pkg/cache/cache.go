package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the byte-level backend of a Layer. Get reports a miss with ok=false.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Entry represents a cached value with expiration
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// MemoryStore is an in-process Store with TTL
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Entry
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]*Entry{}, now: time.Now}
}

// Set stores a value with a given TTL. A non-positive TTL never expires.
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &Entry{Value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.ExpiresAt = c.now().Add(ttl)
	}
	c.items[key] = e
	return nil
}

// Get retrieves a value if it hasn't expired
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && cur == entry {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes a key
func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// DeletePrefix removes all items whose key starts with prefix
func (c *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the single-process stand-in for RedisAdapter.
type MemoryCache struct {
	mu   sync.Mutex
	keys map[string]memoryCacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryCacheEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys: make(map[string]memoryCacheEntry),
		ttl:  idempotencyKeyTTL,
		now:  time.Now,
	}
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.keys[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	c.keys[key] = memoryCacheEntry{token: token, expiresAt: now.Add(c.ttl)}
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(_ context.Context, key, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.keys[key]; ok && entry.token == token {
		delete(c.keys, key)
	}
	return nil
}

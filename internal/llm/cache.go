package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"juris-backend/internal/shared/telemetry"
)

// DefaultCacheTTL bounds how long a generated response stays reusable.
const DefaultCacheTTL = time.Hour

// Cache is a process-wide TTL store for generated responses, keyed by
// prompt content hash. Values are pure functions of their keys, so
// last-write-wins on identical keys is acceptable.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	value    string
	storedAt time.Time
}

// NewCache creates a cache with the given TTL. A non-positive TTL falls
// back to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set stores value under key, resetting its TTL.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Cached wraps a Client with a TTL response cache. Caching can be toggled
// per pipeline run (scoped cache bypass); the toggle is an atomic so
// concurrent runs sharing the client stay race-free.
type Cached struct {
	base    Client
	backend string
	cache   *Cache
	enabled atomic.Bool
}

// NewCached wraps base with a cache. Caching starts enabled.
func NewCached(base Client, backend string, ttl time.Duration) *Cached {
	c := &Cached{
		base:    base,
		backend: backend,
		cache:   NewCache(ttl),
	}
	c.enabled.Store(true)
	return c
}

// SetEnabled toggles caching and returns the previous state so callers can
// restore it when a scoped bypass ends.
func (c *Cached) SetEnabled(enabled bool) bool {
	return c.enabled.Swap(enabled)
}

// Enabled reports whether cache lookups are active.
func (c *Cached) Enabled() bool { return c.enabled.Load() }

// Generate consults the cache before delegating to the wrapped client.
// Cache hits never touch the network.
func (c *Cached) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	key := req.CacheKey
	if key == "" && req.Prompt != "" {
		key = HashPrompt(req.Prompt)
	}

	if c.enabled.Load() && key != "" {
		if value, ok := c.cache.Get(key); ok {
			telemetry.Info("llm.cache_hit", map[string]any{
				"backend": c.backend,
				"key":     shortKey(key),
			})
			return value, nil
		}
	}

	out, err := c.base.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if c.enabled.Load() && key != "" {
		c.cache.Set(key, out)
	}
	return out, nil
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}

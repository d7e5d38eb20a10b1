package cache

import (
	"context"
	"time"

	"packsend-service/internal/pkg/clock"

	gocache "github.com/patrickmn/go-cache"
)

const memoryJanitorInterval = 10 * time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is the single-process fallback used when no redis address is configured.
// go-cache evicts on wall time; Get also honours the injected clock so lease and
// retention arithmetic agree with the rest of the service.
type MemoryCache struct {
	items *gocache.Cache
	clock clock.Clock
}

func NewMemoryCache(clk clock.Clock) *MemoryCache {
	return &MemoryCache{
		items: gocache.New(gocache.NoExpiration, memoryJanitorInterval),
		clock: clk,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	e, ok := raw.(memoryEntry)
	if !ok {
		c.items.Delete(key)
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		c.items.Delete(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set treats a non-positive ttl as "no expiry".
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := memoryEntry{value: stored}
	expiry := gocache.NoExpiration
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
		expiry = ttl
	}
	c.items.Set(key, e, expiry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len counts stored entries, including ones the janitor has not evicted yet.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

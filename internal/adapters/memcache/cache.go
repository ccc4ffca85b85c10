// Package memcache is the in-process cache used when no redis is configured.
// Values go through JSON like the redis adapter so both behave the same.
package memcache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flex_reviews/internal/adapters/observability"
)

type item struct {
	val     []byte
	expires time.Time
}

type Cache struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

func New() *Cache {
	return &Cache{items: map[string]item{}, now: time.Now}
}

// WithClock swaps the time source; tests use it to step past TTLs.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && !c.now().Before(it.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(it.val, dst)
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = item{val: b, expires: c.now().Add(time.Duration(ttlSec) * time.Second)}
	c.mu.Unlock()
	observability.ObserveCache("memory", "set")
	return nil
}

func (c *Cache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	observability.ObserveCache("memory", "del")
	return nil
}

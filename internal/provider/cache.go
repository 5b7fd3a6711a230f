package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	body      json.RawMessage
	fetchedAt time.Time
}

// ResponseCache keeps provider responses keyed by credential fingerprint and
// endpoint. An entry is served while younger than ttl and removed once older
// than maxAge, whether or not it is read again.
type ResponseCache struct {
	entries *gocache.Cache
	ttl     time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

func NewResponseCache(ttl, maxAge, sweepInterval time.Duration, now func() time.Time) *ResponseCache {
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		entries: gocache.New(maxAge, sweepInterval),
		ttl:     ttl,
		maxAge:  maxAge,
		now:     now,
	}
}

func cacheKey(credential, endpoint string) string {
	return fmt.Sprintf("%016x|%s", xxhash.Sum64String(credential), endpoint)
}

func (c *ResponseCache) Get(credential, endpoint string) (json.RawMessage, bool) {
	key := cacheKey(credential, endpoint)
	item, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	entry := item.(cachedResponse)

	age := c.now().Sub(entry.fetchedAt)
	if age > c.maxAge {
		c.entries.Delete(key)
		return nil, false
	}
	if age > c.ttl {
		return nil, false
	}
	return entry.body, true
}

func (c *ResponseCache) Set(credential, endpoint string, body json.RawMessage) {
	c.entries.SetDefault(cacheKey(credential, endpoint), cachedResponse{
		body:      body,
		fetchedAt: c.now(),
	})
}

// Sweep drops entries older than maxAge by the cache's clock and returns how
// many were removed. The go-cache janitor does the same on wall-clock time.
func (c *ResponseCache) Sweep() int {
	now := c.now()
	removed := 0
	for key, item := range c.entries.Items() {
		entry, ok := item.Object.(cachedResponse)
		if !ok || now.Sub(entry.fetchedAt) > c.maxAge {
			c.entries.Delete(key)
			removed++
		}
	}
	return removed
}

func (c *ResponseCache) Purge() {
	c.entries.Flush()
}

func (c *ResponseCache) Len() int {
	return c.entries.ItemCount()
}

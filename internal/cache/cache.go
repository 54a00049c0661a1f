// Package cache holds fetched article bodies keyed by URL so that
// overlapping pipeline runs do not hit the reader proxy twice.
package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTTL is how long a fetched body stays reusable.
const DefaultTTL = time.Hour

type entry struct {
	content  string
	storedAt time.Time
}

// Cache is a TTL-bounded in-memory response cache. Entries expire lazily:
// an expired entry is removed on the read that discovers it. Safe for
// concurrent use by fetch workers. Not persisted across restarts.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL. A non-positive TTL falls back
// to DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func key(url string) string {
	return strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Get returns the cached body for url, or ok=false when absent or expired.
func (c *Cache) Get(url string) (string, bool) {
	k := key(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, k)
		return "", false
	}
	return e.content, true
}

// Put stores a body for url, stamping it with the current time.
func (c *Cache) Put(url, content string) {
	k := key(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[k] = entry{content: content, storedAt: c.now()}
}

// Len returns the number of live entries, counting any not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// api/pdp/cache.go
package pdp

import (
	"sync"
	"time"

	"github.com/campushq/sentra/api/model"
)

// decisionCache is a TTL map for computed decisions. Every entry is
// stamped with the policy-set version it was computed against; entries
// from an earlier version are dropped on sight, so a policy reload
// invalidates the whole cache without any cross-goroutine coordination
// and a slow evaluation racing a reload can never plant a servable
// stale verdict. Expired entries are dropped lazily on read and swept
// by a background janitor.
type decisionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	decision  *model.Decision
	version   uint64
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	c := &decisionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns the cached decision for key if it is fresh and was
// computed against the given policy-set version.
func (c *decisionCache) Get(key string, version uint64) (*model.Decision, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.version != version || time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.decision, true
}

func (c *decisionCache) Set(key string, decision *model.Decision, version uint64) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		decision:  decision,
		version:   version,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *decisionCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *decisionCache) janitor() {
	interval := c.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

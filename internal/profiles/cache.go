package profiles

import (
	"strings"
	"sync"
	"time"

	"github.com/soltixdb/tsinsight/internal/metrics"
)

type cacheEntry struct {
	profile   Profile
	expiresAt time.Time
}

// Cache is a read-through TTL cache of decoded profiles keyed by name
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewCache creates a cache and starts its janitor
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup(janitorInterval(ttl))

	return c
}

func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > time.Minute {
		return time.Minute
	}
	return ttl
}

// Get returns a copy of the cached profile
func (c *Cache) Get(name string) (*Profile, bool) {
	c.mu.RLock()
	entry, exists := c.entries[name]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
	p := entry.profile
	return &p, true
}

// Set stores a copy of profile
func (c *Cache) Set(profile *Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[profile.Name] = &cacheEntry{
		profile:   *profile,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a profile from the cache
func (c *Cache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, name)
}

// DeletePrefix removes all profiles whose name starts with prefix
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.entries {
		if strings.HasPrefix(name, prefix) {
			delete(c.entries, name)
		}
	}
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	n := 0
	for _, entry := range c.entries {
		if !now.After(entry.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for name, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, name)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the janitor. Safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

// Package cache holds small concurrent-safe lookups shared across the crawl.
package cache

import "sync"

// Fingerprints remembers the last written fingerprint per key so writers can
// skip work when nothing changed.
type Fingerprints struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewFingerprints creates an empty store
func NewFingerprints() *Fingerprints {
	return &Fingerprints{
		items: make(map[string]string),
	}
}

// Get returns the fingerprint stored for key
func (c *Fingerprints) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, found := c.items[key]
	return v, found
}

// Set stores the fingerprint for key
func (c *Fingerprints) Set(key, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = fingerprint
}

// Unchanged reports whether key already holds fingerprint
func (c *Fingerprints) Unchanged(key, fingerprint string) bool {
	v, found := c.Get(key)
	return found && v == fingerprint
}

// Delete forgets key
func (c *Fingerprints) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of keys held
func (c *Fingerprints) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

package semantic

import (
	"sync"

	"github.com/yaklabco/tsweave/pkg/source"
)

// Cache memoizes unit analyses. An entry is reused when the unit ID and
// version match, or when the text fingerprint is unchanged under a new
// version.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*UnitInfo
	hits    int
	misses  int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*UnitInfo)}
}

// Analyze returns the analysis of u, computing it on a miss.
func (c *Cache) Analyze(u *source.Unit) (*UnitInfo, error) {
	c.mu.Lock()
	cached, ok := c.entries[u.ID]
	c.mu.Unlock()

	if ok && cached.Version == u.Version {
		c.count(true)
		return cached, nil
	}
	if ok && cached.Fingerprint == Fingerprint(u.Text) {
		// Same text, new version. Offsets are unchanged so the symbols still
		// hold, only the version tag moves.
		moved := *cached
		moved.Version = u.Version
		c.store(&moved)
		c.count(true)
		return &moved, nil
	}

	info, err := Analyze(u)
	if err != nil {
		return nil, err
	}
	c.store(info)
	c.count(false)
	return info, nil
}

func (c *Cache) store(info *UnitInfo) {
	c.mu.Lock()
	c.entries[info.ID] = info
	c.mu.Unlock()
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

// Get returns the cached analysis of id at version.
func (c *Cache) Get(id string, version int) (*UnitInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[id]
	if !ok || info.Version != version {
		return nil, false
	}
	return info, true
}

// Invalidate drops the entry for id.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*UnitInfo)
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
}

// Len returns the number of cached units.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since the last Reset.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

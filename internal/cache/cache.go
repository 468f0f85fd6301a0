package cache

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a single cached value. Keys are directory paths, so a changed
// file invalidates every entry whose key is an ancestor directory.
type Entry struct {
	Data      interface{}
	CreatedAt time.Time
	Hash      string // optional content hash
}

// Stats tracks cache performance metrics
type Stats struct {
	Entries       int     `json:"entries"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	Expirations   int64   `json:"expirations"`
	HitRatio      float64 `json:"hit_ratio"`
}

// Config holds cache configuration options
type Config struct {
	TTL time.Duration
}

// DefaultConfig returns sensible defaults for cache configuration
func DefaultConfig() Config {
	return Config{TTL: 5 * time.Minute}
}

// Cache memoizes expensive full-corpus scans, keyed by (type, key).
// It is an explicit instance with an injected lifecycle: construct it at
// process start, hand it to the analyzer, clear it on shutdown.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]map[string]*Entry // type -> key -> entry
	ttl     time.Duration
	stats   Stats
}

// New creates a cache with the given configuration
func New(config Config) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Cache{
		entries: make(map[string]map[string]*Entry),
		ttl:     config.TTL,
	}
}

// Get retrieves a value. Expired entries count as misses and are
// removed on the spot.
func (c *Cache) Get(cacheType, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheType][key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(entry) {
		c.removeLocked(cacheType, key)
		c.stats.Misses++
		c.stats.Expirations++
		return nil, false
	}

	c.stats.Hits++
	return entry.Data, true
}

// Set stores a value under (type, key)
func (c *Cache) Set(cacheType, key string, data interface{}) {
	c.SetWithHash(cacheType, key, data, "")
}

// SetWithHash stores a value along with a content hash callers can use
// to detect unchanged inputs.
func (c *Cache) SetWithHash(cacheType, key string, data interface{}, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[cacheType] == nil {
		c.entries[cacheType] = make(map[string]*Entry)
	}
	c.entries[cacheType][key] = &Entry{
		Data:      data,
		CreatedAt: time.Now(),
		Hash:      hash,
	}
	c.stats.Sets++
}

// Invalidate removes one entry. Returns true if it existed.
func (c *Cache) Invalidate(cacheType, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[cacheType][key]; !ok {
		return false
	}
	c.removeLocked(cacheType, key)
	c.stats.Invalidations++
	return true
}

// InvalidateByType removes every entry of the given type
func (c *Cache) InvalidateByType(cacheType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries[cacheType])
	delete(c.entries, cacheType)
	c.stats.Invalidations += int64(n)
	return n
}

// InvalidateByFile removes every entry whose key directory is an
// ancestor of the changed file and returns the removed keys, so a
// watcher can report what was dropped.
func (c *Cache) InvalidateByFile(filePath string) []string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for cacheType, byKey := range c.entries {
		for key := range byKey {
			if !coversPath(key, abs) {
				continue
			}
			c.removeLocked(cacheType, key)
			c.stats.Invalidations++
			removed = append(removed, cacheType+":"+key)
		}
	}
	sort.Strings(removed)
	return removed
}

// CleanupExpired removes all expired entries and returns how many went
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for cacheType, byKey := range c.entries {
		for key, entry := range byKey {
			if c.expired(entry) {
				c.removeLocked(cacheType, key)
				c.stats.Expirations++
				n++
			}
		}
	}
	return n
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]*Entry)
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	for _, byKey := range c.entries {
		stats.Entries += len(byKey)
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats
}

// StartCleanupTimer runs periodic expiry sweeps until ctx is done
func (c *Cache) StartCleanupTimer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.CleanupExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Cache) expired(entry *Entry) bool {
	return time.Since(entry.CreatedAt) > c.ttl
}

func (c *Cache) removeLocked(cacheType, key string) {
	delete(c.entries[cacheType], key)
	if len(c.entries[cacheType]) == 0 {
		delete(c.entries, cacheType)
	}
}

// coversPath reports whether dir is the changed path itself or one of
// its ancestor directories.
func coversPath(dir, changed string) bool {
	if dir == changed {
		return true
	}
	rel, err := filepath.Rel(dir, changed)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Package cache provides the embedding cache used by the matcher engine.
// Entries are populated lazily on first lookup and live until explicit
// invalidation or LRU eviction; TTL expiry is opt-in.
package cache

import "time"

// Cache is the embedding cache contract consumed by the matcher engine.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns: value, whether it exists.
	Get(key string) (any, bool)

	// Set stores a value in the cache.
	Set(key string, value any)

	// Invalidate removes entries matching the pattern.
	// pattern supports a trailing * wildcard (emb:owner-1:*).
	// Returns the number of entries removed.
	Invalidate(pattern string) int

	// Size returns the number of live entries.
	Size() int

	// Clear removes all entries.
	Clear()
}

// Config configures an LRU cache.
type Config struct {
	Capacity int           // maximum number of entries (default: 4096)
	TTL      time.Duration // entry lifetime; 0 disables expiry
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: 4096,
		TTL:      0,
	}
}

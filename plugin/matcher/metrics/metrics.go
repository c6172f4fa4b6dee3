// Package metrics provides in-memory counters for the matcher engine.
// Consumers read a snapshot for operational endpoints and tests.
package metrics

import "sync"

// Snapshot is a point-in-time copy of the engine counters.
type Snapshot struct {
	Requests          int64 `json:"requests"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	EmbeddingCalls    int64 `json:"embedding_calls"`
	EmbeddingFallback int64 `json:"embedding_fallbacks"`
	CollabFallback    int64 `json:"collaborative_fallbacks"`
	RerankFallback    int64 `json:"rerank_fallbacks"`
}

// Collector aggregates engine counters. Safe for concurrent use.
type Collector struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records one matching request.
func (c *Collector) RecordRequest() { c.add(func(s *Snapshot) { s.Requests++ }) }

// RecordCacheHit records an embedding cache hit.
func (c *Collector) RecordCacheHit() { c.add(func(s *Snapshot) { s.CacheHits++ }) }

// RecordCacheMiss records an embedding cache miss.
func (c *Collector) RecordCacheMiss() { c.add(func(s *Snapshot) { s.CacheMisses++ }) }

// RecordEmbeddingCall records one upstream embedding call.
func (c *Collector) RecordEmbeddingCall() { c.add(func(s *Snapshot) { s.EmbeddingCalls++ }) }

// RecordEmbeddingFallback records a locally computed fallback embedding.
func (c *Collector) RecordEmbeddingFallback() { c.add(func(s *Snapshot) { s.EmbeddingFallback++ }) }

// RecordCollabFallback records a collaborative scorer fallback.
func (c *Collector) RecordCollabFallback() { c.add(func(s *Snapshot) { s.CollabFallback++ }) }

// RecordRerankFallback records a rerank scorer fallback.
func (c *Collector) RecordRerankFallback() { c.add(func(s *Snapshot) { s.RerankFallback++ }) }

// Stats returns a copy of the current counters.
func (c *Collector) Stats() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Reset zeroes all counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{}
}

func (c *Collector) add(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.snap)
}

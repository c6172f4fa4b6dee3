package matcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pawmatch/pawmatch/plugin/matcher/cache"
	"github.com/pawmatch/pawmatch/plugin/matcher/metrics"
	"github.com/pawmatch/pawmatch/plugin/matcher/timeout"
)

// EmbeddingStore persists embeddings across restarts. Implementations live
// in the store package; a nil store disables persistence.
type EmbeddingStore interface {
	GetEmbedding(ctx context.Context, entityID string) (*Embedding, error)
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	DeleteEmbedding(ctx context.Context, entityID string) error
}

// EmbeddingProvider resolves entity embeddings through a cache, an optional
// persistent store, the external service, and the deterministic fallback,
// in that order. Concurrent misses for the same entity collapse into a
// single upstream call.
type EmbeddingProvider struct {
	service   EmbeddingService
	cache     cache.Cache
	store     EmbeddingStore
	collector *metrics.Collector
	group     singleflight.Group
}

// NewEmbeddingProvider creates an embedding provider. store may be nil.
func NewEmbeddingProvider(service EmbeddingService, c cache.Cache, store EmbeddingStore, collector *metrics.Collector) *EmbeddingProvider {
	if c == nil {
		c = cache.NewLRUCache(cache.DefaultConfig())
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &EmbeddingProvider{
		service:   service,
		cache:     c,
		store:     store,
		collector: collector,
	}
}

const embeddingKeyPrefix = "emb:"

// GetEmbedding returns the embedding for an entity, computing and caching
// it on first use. External failures degrade to the deterministic fallback
// vector, so a vector is always produced.
func (p *EmbeddingProvider) GetEmbedding(ctx context.Context, entityID string, traits CanonicalTraits) (*Embedding, error) {
	key := embeddingKeyPrefix + entityID
	if v, ok := p.cache.Get(key); ok {
		if emb, ok := v.(*Embedding); ok {
			p.collector.RecordCacheHit()
			return emb, nil
		}
	}
	p.collector.RecordCacheMiss()

	v, err, _ := p.group.Do(entityID, func() (any, error) {
		// Re-check after winning the flight: a concurrent caller may have
		// populated the cache already.
		if v, ok := p.cache.Get(key); ok {
			if emb, ok := v.(*Embedding); ok {
				return emb, nil
			}
		}

		// The flight serves every waiter, not just the winning caller.
		// Detach from the winner's context so its cancellation cannot
		// become a cached fallback for everyone else; resolve applies
		// its own call timeout.
		emb := p.resolve(context.WithoutCancel(ctx), entityID, traits)
		p.cache.Set(key, emb)
		return emb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Embedding), nil
}

// resolve computes an embedding from the store tier, the external service,
// or the local fallback. It always produces a vector of the configured
// dimension.
func (p *EmbeddingProvider) resolve(ctx context.Context, entityID string, traits CanonicalTraits) *Embedding {
	d := p.service.Dimensions()

	if p.store != nil {
		stored, err := p.store.GetEmbedding(ctx, entityID)
		if err != nil {
			slog.Warn("embedding store read failed", "entity_id", entityID, "error", err)
		} else if stored != nil {
			stored.Vector = NormalizeDimensions(stored.Vector, d)
			return stored
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	p.collector.RecordEmbeddingCall()
	vec, err := p.service.Embed(callCtx, traits.Text())
	if err != nil {
		p.collector.RecordEmbeddingFallback()
		if !errors.Is(err, ErrEmbeddingDisabled) {
			slog.Warn("external embedding failed, using fallback vector",
				"entity_id", entityID, "error", err)
		}
		return &Embedding{
			EntityID:  entityID,
			Vector:    FallbackEmbedding(traits, d),
			Source:    EmbeddingSourceFallback,
			CreatedAt: time.Now().UTC(),
		}
	}

	emb := &Embedding{
		EntityID:  entityID,
		Vector:    vec,
		Source:    EmbeddingSourceExternal,
		CreatedAt: time.Now().UTC(),
	}

	if p.store != nil {
		if err := p.store.UpsertEmbedding(ctx, emb); err != nil {
			slog.Warn("embedding store write failed", "entity_id", entityID, "error", err)
		}
	}
	return emb
}

// Invalidate removes an entity's embedding from the cache and the store.
// The next lookup recomputes it.
func (p *EmbeddingProvider) Invalidate(ctx context.Context, entityID string) error {
	p.cache.Invalidate(embeddingKeyPrefix + entityID)
	if p.store != nil {
		return p.store.DeleteEmbedding(ctx, entityID)
	}
	return nil
}

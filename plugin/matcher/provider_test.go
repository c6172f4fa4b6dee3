package matcher

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pawmatch/pawmatch/plugin/matcher/cache"
)

// stubEmbeddingService counts upstream calls and serves canned vectors.
type stubEmbeddingService struct {
	dimensions int
	calls      atomic.Int64
	fail       bool
	honorCtx   bool          // when set, Embed fails on cancelled contexts
	block      chan struct{} // when set, Embed waits until closed
	vector     []float32
}

func (s *stubEmbeddingService) Embed(ctx context.Context, _ string) ([]float32, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.fail {
		return nil, errors.New("upstream unavailable")
	}
	return NormalizeDimensions(s.vector, s.dimensions), nil
}

func (s *stubEmbeddingService) Dimensions() int { return s.dimensions }
func (s *stubEmbeddingService) IsEnabled() bool { return true }

func newTestProvider(svc EmbeddingService) *EmbeddingProvider {
	return NewEmbeddingProvider(svc, cache.NewLRUCache(cache.Config{Capacity: 128}), nil, nil)
}

func TestEmbeddingProvider_CachesByEntityID(t *testing.T) {
	svc := &stubEmbeddingService{dimensions: 4, vector: []float32{1, 2, 3, 4}}
	p := newTestProvider(svc)
	ctx := context.Background()
	traits := Normalize(RawRecord{"bio": "friendly"})

	first, err := p.GetEmbedding(ctx, "sitter:1", traits)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	second, err := p.GetEmbedding(ctx, "sitter:1", traits)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}

	if got := svc.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 upstream call, got %d", got)
	}
	if !reflect.DeepEqual(first.Vector, second.Vector) {
		t.Error("cached vector differs from original")
	}
	if first.Source != EmbeddingSourceExternal {
		t.Errorf("source = %q, want %q", first.Source, EmbeddingSourceExternal)
	}
}

func TestEmbeddingProvider_SingleFlightCollapsesConcurrentMisses(t *testing.T) {
	block := make(chan struct{})
	svc := &stubEmbeddingService{dimensions: 4, vector: []float32{1, 0, 0, 0}, block: block}
	p := newTestProvider(svc)
	traits := Normalize(RawRecord{"bio": "popular sitter"})

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := p.GetEmbedding(context.Background(), "sitter:hot", traits); err != nil {
				t.Errorf("GetEmbedding() error = %v", err)
			}
		}()
	}
	close(start)
	close(block)
	wg.Wait()

	if got := svc.calls.Load(); got != 1 {
		t.Errorf("expected concurrent misses to collapse to 1 upstream call, got %d", got)
	}
}

func TestEmbeddingProvider_FallbackOnFailure(t *testing.T) {
	svc := &stubEmbeddingService{dimensions: 8, fail: true}
	p := newTestProvider(svc)
	traits := Normalize(RawRecord{"size": "medium", "bio": "steady"})

	emb, err := p.GetEmbedding(context.Background(), "sitter:2", traits)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	if emb.Source != EmbeddingSourceFallback {
		t.Errorf("source = %q, want %q", emb.Source, EmbeddingSourceFallback)
	}
	if len(emb.Vector) != 8 {
		t.Errorf("fallback vector length = %d, want 8", len(emb.Vector))
	}
	if !reflect.DeepEqual(emb.Vector, FallbackEmbedding(traits, 8)) {
		t.Error("fallback vector is not the deterministic generator output")
	}
}

func TestEmbeddingProvider_InvalidateForcesRecompute(t *testing.T) {
	svc := &stubEmbeddingService{dimensions: 4, vector: []float32{0.5, 0.5, 0, 0}}
	p := newTestProvider(svc)
	ctx := context.Background()
	traits := Normalize(RawRecord{"bio": "refreshing"})

	if _, err := p.GetEmbedding(ctx, "sitter:3", traits); err != nil {
		t.Fatal(err)
	}
	if err := p.Invalidate(ctx, "sitter:3"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.GetEmbedding(ctx, "sitter:3", traits); err != nil {
		t.Fatal(err)
	}

	if got := svc.calls.Load(); got != 2 {
		t.Errorf("expected a fresh upstream call after invalidation, got %d total", got)
	}
}

func TestEmbeddingProvider_CancelledCallerDoesNotCacheFallback(t *testing.T) {
	svc := &stubEmbeddingService{dimensions: 4, vector: []float32{1, 0, 0, 0}, honorCtx: true}
	p := newTestProvider(svc)
	traits := Normalize(RawRecord{"bio": "still wanted"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emb, err := p.GetEmbedding(ctx, "sitter:4", traits)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	if emb.Source != EmbeddingSourceExternal {
		t.Errorf("source = %q, want %q", emb.Source, EmbeddingSourceExternal)
	}

	// The cached entry must be the external vector, not a fallback pinned
	// by the cancelled caller.
	again, err := p.GetEmbedding(context.Background(), "sitter:4", traits)
	if err != nil {
		t.Fatal(err)
	}
	if again.Source != EmbeddingSourceExternal {
		t.Errorf("cached source = %q, want %q", again.Source, EmbeddingSourceExternal)
	}
	if got := svc.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}
}

func TestEmbeddingProvider_DistinctEntitiesDistinctCalls(t *testing.T) {
	svc := &stubEmbeddingService{dimensions: 4, vector: []float32{1, 1, 1, 1}}
	p := newTestProvider(svc)
	ctx := context.Background()
	traits := Normalize(RawRecord{"bio": "anyone"})

	for _, id := range []string{"a", "b", "c"} {
		if _, err := p.GetEmbedding(ctx, id, traits); err != nil {
			t.Fatal(err)
		}
	}
	if got := svc.calls.Load(); got != 3 {
		t.Errorf("expected 3 upstream calls for 3 entities, got %d", got)
	}
}

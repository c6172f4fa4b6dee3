package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmatch/pawmatch/plugin/matcher/cache"
)

// markerEmbeddingService returns a canned vector per marker substring so
// tests control each entity's embedding through its profile text.
type markerEmbeddingService struct {
	dimensions int
	vectors    map[string][]float32
}

func (s *markerEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	for marker, vec := range s.vectors {
		if strings.Contains(text, marker) {
			return NormalizeDimensions(vec, s.dimensions), nil
		}
	}
	return nil, errors.New("no marker matched")
}

func (s *markerEmbeddingService) Dimensions() int { return s.dimensions }
func (s *markerEmbeddingService) IsEnabled() bool { return true }

// fixedCollabScorer serves per-candidate scores from a map.
type fixedCollabScorer struct {
	scores map[string]float64
}

func (s *fixedCollabScorer) Score(_ context.Context, _, candidateID string) (float64, error) {
	score, ok := s.scores[candidateID]
	if !ok {
		return 0, errors.New("unknown candidate")
	}
	return score, nil
}

func (s *fixedCollabScorer) IsEnabled() bool { return true }

// failingReranker simulates an unusable reasoning service response.
type failingReranker struct{}

func (failingReranker) RerankBatch(context.Context, RequesterProfile, []CandidateSummary) ([]RerankResult, error) {
	return nil, errors.New("malformed rerank response: invalid character 'o'")
}

func (failingReranker) IsEnabled() bool { return true }

func testRequester() RequesterProfile {
	return RequesterProfile{
		OwnerID: "owner-1",
		Pet: PetProfile{
			ID:    "pet-1",
			Breed: "alpha",
			Size:  "medium",
		},
	}
}

func newTestEngine(t *testing.T, cfg *Config, svc EmbeddingService, collab CollaborativeScorer, reranker RerankerService) *Engine {
	t.Helper()
	provider := NewEmbeddingProvider(svc, cache.NewLRUCache(cache.Config{Capacity: 128}), nil, nil)
	engine, err := NewEngine(cfg, provider, collab, reranker, nil)
	require.NoError(t, err)
	return engine
}

func TestEngine_ConcreteFusionScenario(t *testing.T) {
	// Requester and candidate A share a direction (content 1.0); B is
	// orthogonal (content 0.0). With collaborative and rerank both at
	// 0.5, fused(A)=0.7 and fused(B)=0.3.
	svc := &markerEmbeddingService{
		dimensions: 4,
		vectors: map[string][]float32{
			"alpha": {1, 0, 0, 0},
			"beta":  {0, 1, 0, 0},
		},
	}
	cfg := DefaultConfig()
	cfg.Embedding.Dimensions = 4
	cfg.Collab.Fallback = 0.5
	cfg.Reranker.FallbackConfidence = 0.5

	engine := newTestEngine(t, cfg, svc, nil, nil)

	candidates := []SitterProfile{
		{ID: "sitter-b", Bio: "beta"},
		{ID: "sitter-a", Bio: "alpha"},
	}

	recs, err := engine.GetRecommendations(context.Background(), testRequester(), candidates, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "sitter-a", recs[0].Sitter.ID)
	assert.Equal(t, "sitter-b", recs[1].Sitter.ID)
	assert.InDelta(t, 0.7, recs[0].Scores.Fused, 1e-9)
	assert.InDelta(t, 0.3, recs[1].Scores.Fused, 1e-9)
	assert.Equal(t, ConfidenceMedium, recs[0].Scores.Confidence)
	assert.Equal(t, ConfidenceLow, recs[1].Scores.Confidence)
}

func TestEngine_ResultLengthIsMinOfNAndLimit(t *testing.T) {
	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {1, 0, 0, 0}}}
	engine := newTestEngine(t, configWithDims(4), svc, nil, nil)

	makeCandidates := func(n int) []SitterProfile {
		out := make([]SitterProfile, n)
		for i := range out {
			out[i] = SitterProfile{ID: string(rune('a' + i))}
		}
		return out
	}

	for _, tt := range []struct{ n, limit, want int }{
		{5, 3, 3},
		{5, 5, 5},
		{2, 10, 2},
		{5, 1, 1},
	} {
		recs, err := engine.GetRecommendations(context.Background(), testRequester(), makeCandidates(tt.n), tt.limit)
		require.NoError(t, err)
		assert.Len(t, recs, tt.want, "n=%d limit=%d", tt.n, tt.limit)
	}
}

func TestEngine_LimitOneMatchesUnrestrictedWinner(t *testing.T) {
	svc := &markerEmbeddingService{
		dimensions: 4,
		vectors: map[string][]float32{
			"alpha": {1, 0, 0, 0},
			"near":  {0.9, 0.1, 0, 0},
			"far":   {0, 1, 0, 0},
		},
	}
	collab := &fixedCollabScorer{scores: map[string]float64{
		"s1": 0.2, "s2": 0.9, "s3": 0.4, "s4": 0.6, "s5": 0.1,
	}}
	engine := newTestEngine(t, configWithDims(4), svc, collab, nil)

	candidates := []SitterProfile{
		{ID: "s1", Bio: "far"},
		{ID: "s2", Bio: "near"},
		{ID: "s3", Bio: "far"},
		{ID: "s4", Bio: "near"},
		{ID: "s5", Bio: "far"},
	}

	all, err := engine.GetRecommendations(context.Background(), testRequester(), candidates, len(candidates))
	require.NoError(t, err)
	top, err := engine.GetRecommendations(context.Background(), testRequester(), candidates, 1)
	require.NoError(t, err)

	require.Len(t, top, 1)
	assert.Equal(t, all[0].Sitter.ID, top[0].Sitter.ID)
}

func TestEngine_RerankFailureFallsBackWithoutError(t *testing.T) {
	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {1, 0, 0, 0}}}
	engine := newTestEngine(t, configWithDims(4), svc, nil, failingReranker{})

	candidates := []SitterProfile{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}
	recs, err := engine.GetRecommendations(context.Background(), testRequester(), candidates, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	for _, rec := range recs {
		assert.Equal(t, DefaultRerankFallback, rec.Scores.Rerank)
	}
	assert.Positive(t, engine.Metrics().Stats().RerankFallback)
}

func TestEngine_AllScoresStayInRange(t *testing.T) {
	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {0.3, 0.3, 0.9, 0}}}
	engine := newTestEngine(t, configWithDims(4), svc, nil, nil)

	recs, err := engine.GetRecommendations(context.Background(), testRequester(),
		[]SitterProfile{{ID: "s1"}, {ID: "s2"}}, 10)
	require.NoError(t, err)

	for _, rec := range recs {
		for name, v := range map[string]float64{
			"content":       rec.Scores.Content,
			"collaborative": rec.Scores.Collaborative,
			"rerank":        rec.Scores.Rerank,
			"fused":         rec.Scores.Fused,
		} {
			assert.GreaterOrEqual(t, v, 0.0, name)
			assert.LessOrEqual(t, v, 1.0, name)
		}
	}
}

func TestEngine_InvalidInputFailsFast(t *testing.T) {
	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {1, 0, 0, 0}}}
	engine := newTestEngine(t, configWithDims(4), svc, nil, nil)

	tests := []struct {
		name       string
		requester  RequesterProfile
		candidates []SitterProfile
	}{
		{
			"MissingOwnerID",
			RequesterProfile{Pet: PetProfile{ID: "pet-1"}},
			[]SitterProfile{{ID: "s1"}},
		},
		{
			"MissingPetID",
			RequesterProfile{OwnerID: "owner-1"},
			[]SitterProfile{{ID: "s1"}},
		},
		{
			"CandidateWithoutID",
			testRequester(),
			[]SitterProfile{{ID: "s1"}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.GetRecommendations(context.Background(), tt.requester, tt.candidates, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEngine_EmptyCandidatesYieldEmptyResult(t *testing.T) {
	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {1, 0, 0, 0}}}
	engine := newTestEngine(t, configWithDims(4), svc, nil, nil)

	recs, err := engine.GetRecommendations(context.Background(), testRequester(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEngine_RejectsInvalidWeights(t *testing.T) {
	cfg := configWithDims(4)
	cfg.Fusion = FusionWeights{Content: 0.9, Collaborative: 0.9, Rerank: 0.9}

	svc := &markerEmbeddingService{dimensions: 4, vectors: map[string][]float32{"": {1, 0, 0, 0}}}
	provider := NewEmbeddingProvider(svc, cache.NewLRUCache(cache.DefaultConfig()), nil, nil)

	_, err := NewEngine(cfg, provider, nil, nil, nil)
	require.Error(t, err)
}

func configWithDims(d int) *Config {
	cfg := DefaultConfig()
	cfg.Embedding.Dimensions = d
	return cfg
}

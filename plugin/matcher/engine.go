package matcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pawmatch/pawmatch/plugin/matcher/metrics"
	"github.com/pawmatch/pawmatch/plugin/matcher/timeout"
)

// ErrInvalidInput marks malformed matching requests. It is the only error
// class callers are expected to handle; signal-source failures never
// propagate.
var ErrInvalidInput = errors.New("invalid matching input")

// Engine is the multi-signal recommendation engine. It resolves embeddings,
// runs the three signal sources concurrently, fuses their scores and
// assembles the ranked result.
type Engine struct {
	config    *Config
	provider  *EmbeddingProvider
	collab    CollaborativeScorer
	reranker  RerankerService
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewEngine creates the engine. The configuration, including fusion
// weights, is validated up front.
func NewEngine(cfg *Config, provider *EmbeddingProvider, collab CollaborativeScorer, reranker RerankerService, collector *metrics.Collector) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid matcher config")
	}
	if provider == nil {
		return nil, errors.New("embedding provider is required")
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Engine{
		config:    cfg,
		provider:  provider,
		collab:    collab,
		reranker:  reranker,
		collector: collector,
		logger:    slog.Default(),
	}, nil
}

// Metrics returns the engine's counter collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.collector
}

// InvalidateEmbedding drops the cached and persisted embedding for an
// entity so the next request recomputes it.
func (e *Engine) InvalidateEmbedding(ctx context.Context, entityID string) error {
	return e.provider.Invalidate(ctx, entityID)
}

// RequesterEntityID is the stable cache identity of a requester.
func RequesterEntityID(r RequesterProfile) string {
	return "requester:" + r.OwnerID + ":" + r.Pet.ID
}

// SitterEntityID is the stable cache identity of a sitter.
func SitterEntityID(s SitterProfile) string {
	return "sitter:" + s.ID
}

// GetRecommendations ranks candidates for the requester and returns the
// best min(len(candidates), limit) of them, ordered best first. A
// non-positive limit uses the configured default. An empty candidate list
// yields an empty result without error.
func (e *Engine) GetRecommendations(ctx context.Context, requester RequesterProfile, candidates []SitterProfile, limit int) ([]Recommendation, error) {
	if err := validateRequest(requester, candidates); err != nil {
		return nil, err
	}

	e.collector.RecordRequest()
	if limit <= 0 {
		limit = e.config.Ranking.DefaultLimit
	}
	if len(candidates) == 0 {
		return []Recommendation{}, nil
	}

	start := time.Now()
	logger := e.logger.With("owner_id", requester.OwnerID, "pet_id", requester.Pet.ID)

	embeddings, requesterEmb, err := e.resolveEmbeddings(ctx, requester, candidates)
	if err != nil {
		return nil, err
	}

	n := len(candidates)
	contentScores := make([]float64, n)
	collabScores := make([]float64, n)
	var rerankScores []float64

	// The three signal families are independent once embeddings exist;
	// run them concurrently and let each degrade on its own.
	var g errgroup.Group

	g.Go(func() error {
		for i := range candidates {
			contentScores[i] = ContentScore(requesterEmb.Vector, embeddings[i].Vector)
		}
		return nil
	})

	g.Go(func() error {
		e.scoreCollaborative(ctx, requester, candidates, collabScores, logger)
		return nil
	})

	g.Go(func() error {
		rerankScores = e.scoreRerank(ctx, requester, candidates, logger)
		return nil
	})

	// The goroutines above never return errors; failures degrade to
	// fallback scores inside each scorer.
	_ = g.Wait()

	scores := make([]ScoreSet, n)
	for i := range candidates {
		scores[i] = ScoreSet{
			Content:       contentScores[i],
			Collaborative: collabScores[i],
			Rerank:        rerankScores[i],
			Fused:         e.config.Fusion.Fuse(contentScores[i], collabScores[i], rerankScores[i]),
		}
	}

	recs := Assemble(requester, candidates, scores, limit)

	logger.InfoContext(ctx, "matching request completed",
		"candidates", n,
		"returned", len(recs),
		"duration_ms", time.Since(start).Milliseconds())

	return recs, nil
}

// validateRequest fails fast on malformed input before any scorer runs.
func validateRequest(requester RequesterProfile, candidates []SitterProfile) error {
	if requester.OwnerID == "" {
		return errors.Wrap(ErrInvalidInput, "requester owner id is required")
	}
	if requester.Pet.ID == "" {
		return errors.Wrap(ErrInvalidInput, "requester pet id is required")
	}
	for i, c := range candidates {
		if c.ID == "" {
			return errors.Wrapf(ErrInvalidInput, "candidate at index %d has no id", i)
		}
	}
	return nil
}

// resolveEmbeddings resolves the requester embedding, then all candidate
// embeddings with bounded parallelism.
func (e *Engine) resolveEmbeddings(ctx context.Context, requester RequesterProfile, candidates []SitterProfile) ([]*Embedding, *Embedding, error) {
	requesterEmb, err := e.provider.GetEmbedding(ctx, RequesterEntityID(requester), Normalize(RequesterRecord(requester)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolve requester embedding")
	}

	embeddings := make([]*Embedding, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(timeout.MaxEmbeddingConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			emb, err := e.provider.GetEmbedding(gctx, SitterEntityID(c), Normalize(SitterRecord(c)))
			if err != nil {
				return err
			}
			embeddings[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "resolve candidate embeddings")
	}
	return embeddings, requesterEmb, nil
}

// scoreCollaborative fills the index-aligned collaborative scores, one
// model call per candidate, falling back per candidate on failure.
func (e *Engine) scoreCollaborative(ctx context.Context, requester RequesterProfile, candidates []SitterProfile, out []float64, logger *slog.Logger) {
	fallback := e.config.Collab.Fallback

	if e.collab == nil || !e.collab.IsEnabled() {
		for i := range out {
			out[i] = fallback
		}
		e.collector.RecordCollabFallback()
		return
	}

	var g errgroup.Group
	g.SetLimit(timeout.MaxCollaborativeConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout.CollaborativeTimeout)
			defer cancel()

			score, err := e.collab.Score(callCtx, requester.OwnerID, c.ID)
			if err != nil {
				logger.WarnContext(ctx, "collaborative scorer failed, using fallback",
					"candidate_id", c.ID, "error", err)
				e.collector.RecordCollabFallback()
				score = fallback
			}
			out[i] = score
			return nil
		})
	}
	_ = g.Wait()
}

// scoreRerank runs the single batched reasoning call and maps its validated
// output onto index-aligned scores.
func (e *Engine) scoreRerank(ctx context.Context, requester RequesterProfile, candidates []SitterProfile, logger *slog.Logger) []float64 {
	n := len(candidates)
	fallback := e.config.Reranker.FallbackConfidence

	if e.reranker == nil || !e.reranker.IsEnabled() {
		e.collector.RecordRerankFallback()
		return BuildRerankScores(nil, n, fallback)
	}

	summaries := make([]CandidateSummary, n)
	for i, c := range candidates {
		summaries[i] = SummarizeCandidate(c)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout.RerankTimeout)
	defer cancel()

	results, err := e.reranker.RerankBatch(callCtx, requester, summaries)
	if err != nil {
		logger.WarnContext(ctx, "rerank call failed, using fallback confidence",
			"candidates", n, "error", err)
		e.collector.RecordRerankFallback()
		return BuildRerankScores(nil, n, fallback)
	}
	return BuildRerankScores(results, n, fallback)
}

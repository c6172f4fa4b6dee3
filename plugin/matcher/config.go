package matcher

import (
	"time"

	"github.com/pkg/errors"

	"github.com/pawmatch/pawmatch/internal/profile"
	"github.com/pawmatch/pawmatch/plugin/matcher/cache"
)

// DefaultDimensions is the globally agreed embedding vector length. Every
// embedding, external or fallback, is normalized to this length before use.
const DefaultDimensions = 256

// Config represents the matcher engine configuration.
type Config struct {
	Embedding EmbeddingConfig
	Collab    CollabConfig
	Reranker  RerankerConfig
	Fusion    FusionWeights
	Ranking   RankingConfig
	Cache     cache.Config
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Enabled    bool
	Model      string // text-embedding-3-small
	Dimensions int    // 256
	APIKey     string
	BaseURL    string
	RateLimit  float64 // upstream calls per second, 0 disables limiting
}

// CollabConfig represents the pairwise preference model configuration.
type CollabConfig struct {
	Enabled  bool
	BaseURL  string
	APIKey   string
	Fallback float64 // score used when the model is unavailable
}

// RerankerConfig represents the reasoning-based reranker configuration.
type RerankerConfig struct {
	Enabled            bool
	Model              string // gpt-4o-mini
	APIKey             string
	BaseURL            string
	FallbackConfidence float64 // confidence used when reranking fails
}

// DefaultRerankFallback is the confidence every candidate receives when the
// reranking call fails or returns an unusable response.
const DefaultRerankFallback = 0.7

// DefaultCollabFallback is the neutral score used when the preference model
// is unavailable.
const DefaultCollabFallback = 0.5

// DefaultConfig returns a configuration with all defaults and external
// services disabled.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Dimensions: DefaultDimensions,
		},
		Collab: CollabConfig{
			Fallback: DefaultCollabFallback,
		},
		Reranker: RerankerConfig{
			FallbackConfidence: DefaultRerankFallback,
		},
		Fusion:  DefaultFusionWeights(),
		Ranking: DefaultRankingConfig(),
		Cache:   cache.DefaultConfig(),
	}
}

// NewConfigFromProfile creates matcher config from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()

	cfg.Embedding = EmbeddingConfig{
		Enabled:    p.IsAIEnabled(),
		Model:      p.AIEmbeddingModel,
		Dimensions: p.AIDimensions,
		APIKey:     p.AIAPIKey,
		BaseURL:    p.AIBaseURL,
		RateLimit:  p.AIRateLimit,
	}

	cfg.Collab = CollabConfig{
		Enabled:  p.IsCollabEnabled(),
		BaseURL:  p.CollabBaseURL,
		APIKey:   p.CollabAPIKey,
		Fallback: p.CollabFallback,
	}

	cfg.Reranker = RerankerConfig{
		Enabled:            p.IsAIEnabled(),
		Model:              p.AIRerankModel,
		APIKey:             p.AIAPIKey,
		BaseURL:            p.AIBaseURL,
		FallbackConfidence: DefaultRerankFallback,
	}

	cfg.Fusion = FusionWeights{
		Content:       p.FusionContentWeight,
		Collaborative: p.FusionCollabWeight,
		Rerank:        p.FusionRerankWeight,
	}

	cfg.Cache = cache.Config{
		Capacity: p.CacheCapacity,
		TTL:      time.Duration(p.CacheTTLSeconds) * time.Second,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return errors.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Enabled && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Collab.Enabled && c.Collab.BaseURL == "" {
		return errors.New("collaborative model base URL is required")
	}
	if c.Collab.Fallback < 0 || c.Collab.Fallback > 1 {
		return errors.Errorf("collaborative fallback must be in [0,1], got %f", c.Collab.Fallback)
	}
	if c.Reranker.FallbackConfidence < 0 || c.Reranker.FallbackConfidence > 1 {
		return errors.Errorf("rerank fallback confidence must be in [0,1], got %f", c.Reranker.FallbackConfidence)
	}
	if err := c.Fusion.Validate(); err != nil {
		return err
	}
	return nil
}

package matcher

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the agreed vector dimension. Vectors returned by
	// Embed are already normalized to this length.
	Dimensions() int

	// IsEnabled returns whether the external service is configured.
	IsEnabled() bool
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
	enabled    bool
	limiter    *rate.Limiter
}

// NewEmbeddingService creates a new EmbeddingService backed by an
// OpenAI-compatible embedding endpoint.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.New("embedding dimensions must be positive")
	}

	svc := &embeddingService{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		enabled:    cfg.Enabled,
	}

	if cfg.Enabled {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		svc.client = openai.NewClientWithConfig(clientConfig)
	}

	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return svc, nil
}

// ErrEmbeddingDisabled is returned when no external embedding provider is
// configured. Callers fall back to the local generator.
var ErrEmbeddingDisabled = errors.New("embedding service is not configured")

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.enabled {
		return nil, ErrEmbeddingDisabled
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.model),
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}

	// The provider's native dimensionality is not guaranteed to match the
	// configured one; normalize before anyone compares vectors.
	return NormalizeDimensions(resp.Data[0].Embedding, s.dimensions), nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) IsEnabled() bool {
	return s.enabled
}

// NormalizeDimensions returns a copy of vec with exactly d elements,
// truncating or zero-padding as needed.
func NormalizeDimensions(vec []float32, d int) []float32 {
	out := make([]float32, d)
	copy(out, vec)
	return out
}

// FallbackEmbedding computes a deterministic local embedding from canonical
// traits. Numeric fields pass through, text fields hash into [0,1]. The
// result always has exactly d elements, so identical traits always produce
// bit-identical vectors.
func FallbackEmbedding(traits CanonicalTraits, d int) []float32 {
	fields := traits.Fields()
	values := make([]float32, 0, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case TraitNumber:
			values = append(values, float32(f.Number))
		case TraitText:
			values = append(values, hashToUnit(f.Text))
		}
	}
	return NormalizeDimensions(values, d)
}

// hashToUnit maps a string into [0,1] via FNV-1a.
func hashToUnit(s string) float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float32(h.Sum32()) / float32(^uint32(0))
}

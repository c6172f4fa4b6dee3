package profile

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the matching server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Driver is the embedding store driver (sqlite or postgres), empty
	// disables persistence
	Driver string
	// DSN points to where pawmatch persists entity embeddings
	DSN string
	// Version is the current version of server
	Version string

	// AI configuration
	AIAPIKey         string  // PAWMATCH_AI_API_KEY
	AIBaseURL        string  // PAWMATCH_AI_BASE_URL (default: https://api.openai.com/v1)
	AIEmbeddingModel string  // PAWMATCH_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIRerankModel    string  // PAWMATCH_AI_RERANK_MODEL (default: gpt-4o-mini)
	AIDimensions     int     // PAWMATCH_AI_DIMENSIONS (default: 256)
	AIRateLimit      float64 // PAWMATCH_AI_RATE_LIMIT, calls per second (default: 10)

	// Collaborative preference model configuration
	CollabBaseURL  string  // PAWMATCH_COLLAB_BASE_URL
	CollabAPIKey   string  // PAWMATCH_COLLAB_API_KEY
	CollabFallback float64 // PAWMATCH_COLLAB_FALLBACK (default: 0.5)

	// Fusion weights
	FusionContentWeight float64 // PAWMATCH_FUSION_CONTENT_WEIGHT (default: 0.4)
	FusionCollabWeight  float64 // PAWMATCH_FUSION_COLLAB_WEIGHT (default: 0.3)
	FusionRerankWeight  float64 // PAWMATCH_FUSION_RERANK_WEIGHT (default: 0.3)

	// Cache configuration
	CacheCapacity   int // PAWMATCH_CACHE_CAPACITY (default: 4096)
	CacheTTLSeconds int // PAWMATCH_CACHE_TTL_SECONDS (default: 0, no expiry)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key for the embedding/reasoning
// provider is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// IsCollabEnabled returns true if the pairwise preference model endpoint
// is configured.
func (p *Profile) IsCollabEnabled() bool {
	return p.CollabBaseURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from PAWMATCH_* environment variables.
// Values already set on the profile are overwritten.
func (p *Profile) FromEnv() {
	p.AIAPIKey = os.Getenv("PAWMATCH_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("PAWMATCH_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIEmbeddingModel = getEnvOrDefault("PAWMATCH_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIRerankModel = getEnvOrDefault("PAWMATCH_AI_RERANK_MODEL", "gpt-4o-mini")
	p.AIDimensions = getIntEnv("PAWMATCH_AI_DIMENSIONS", 256)
	p.AIRateLimit = getFloatEnv("PAWMATCH_AI_RATE_LIMIT", 10)

	p.CollabBaseURL = os.Getenv("PAWMATCH_COLLAB_BASE_URL")
	p.CollabAPIKey = os.Getenv("PAWMATCH_COLLAB_API_KEY")
	p.CollabFallback = getFloatEnv("PAWMATCH_COLLAB_FALLBACK", 0.5)

	p.FusionContentWeight = getFloatEnv("PAWMATCH_FUSION_CONTENT_WEIGHT", 0.4)
	p.FusionCollabWeight = getFloatEnv("PAWMATCH_FUSION_COLLAB_WEIGHT", 0.3)
	p.FusionRerankWeight = getFloatEnv("PAWMATCH_FUSION_RERANK_WEIGHT", 0.3)

	p.CacheCapacity = getIntEnv("PAWMATCH_CACHE_CAPACITY", 4096)
	p.CacheTTLSeconds = getIntEnv("PAWMATCH_CACHE_TTL_SECONDS", 0)
}

// Validate normalizes and checks the profile.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.AIDimensions <= 0 {
		return errors.Errorf("embedding dimensions must be positive, got %d", p.AIDimensions)
	}

	switch p.Driver {
	case "", "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported embedding store driver %q", p.Driver)
	}
	if p.Driver != "" && p.DSN == "" {
		return errors.Errorf("driver %q requires a DSN", p.Driver)
	}

	return nil
}

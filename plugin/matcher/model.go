// Package matcher implements the multi-signal sitter recommendation engine.
// It fuses content similarity, a pairwise preference model, and an external
// reasoning service into a single ranked, explained recommendation list.
package matcher

import "time"

// PetProfile describes the pet a sitter would care for.
type PetProfile struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Species            string   `json:"species"`
	Breed              string   `json:"breed"`
	Size               string   `json:"size"`                // tiny, small, medium, large, giant
	EnergyLevel        string   `json:"energy_level"`        // low, moderate, high, very_high
	TrainingLevel      string   `json:"training_level"`      // none, basic, intermediate, advanced
	SocializationLevel string   `json:"socialization_level"` // poor, fair, good, excellent
	AgeYears           float64  `json:"age_years"`
	Temperament        []string `json:"temperament"`
	SpecialNeeds       []string `json:"special_needs"`
	GoodWithChildren   bool     `json:"good_with_children"`
	GoodWithOtherPets  bool     `json:"good_with_other_pets"`
}

// OwnerPreferences captures what the owner wants from a sitter.
type OwnerPreferences struct {
	Services          []string `json:"services"`
	MaxHourlyRate     float64  `json:"max_hourly_rate"`
	RequiresInsurance bool     `json:"requires_insurance"`
	PreferredTraits   []string `json:"preferred_traits"`
}

// RequesterProfile is the matching request subject: a pet plus its owner's
// preferences.
type RequesterProfile struct {
	OwnerID     string           `json:"owner_id"`
	Pet         PetProfile       `json:"pet"`
	Preferences OwnerPreferences `json:"preferences"`
}

// SitterProfile is a candidate service provider.
type SitterProfile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Bio             string   `json:"bio"`
	Rating          float64  `json:"rating"` // 0-5
	ReviewCount     int      `json:"review_count"`
	YearsExperience float64  `json:"years_experience"`
	HourlyRate      float64  `json:"hourly_rate"`
	Certifications  []string `json:"certifications"`
	Services        []string `json:"services"`
	AcceptedSizes   []string `json:"accepted_sizes"`
	EnergyAffinity  string   `json:"energy_affinity"` // low, moderate, high, very_high
	Insured         bool     `json:"insured"`
	ResponseRate    float64  `json:"response_rate"` // 0-1
}

// Embedding is a fixed-length vector representation of an entity.
// Vector length always equals the configured dimension, regardless of
// whether it came from the external service or the local fallback.
type Embedding struct {
	EntityID  string    `json:"entity_id"`
	Vector    []float32 `json:"vector"`
	Source    string    `json:"source"` // external or fallback
	CreatedAt time.Time `json:"created_at"`
}

// Embedding sources.
const (
	EmbeddingSourceExternal = "external"
	EmbeddingSourceFallback = "fallback"
)

// ScoreSet holds the per-candidate component scores and the fused result.
// All values lie in [0,1].
type ScoreSet struct {
	Content       float64  `json:"content"`
	Collaborative float64  `json:"collaborative"`
	Rerank        float64  `json:"rerank"`
	Fused         float64  `json:"fused"`
	Confidence    string   `json:"confidence"` // high, medium, low
	Reasons       []string `json:"reasons"`
}

// Recommendation pairs a candidate with its scores.
type Recommendation struct {
	Sitter SitterProfile `json:"sitter"`
	Scores ScoreSet      `json:"scores"`
}

// CandidateSummary is the compact form sent to the reranking service.
type CandidateSummary struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

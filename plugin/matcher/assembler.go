package matcher

import (
	"sort"
	"strings"
)

// Confidence labels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Confidence thresholds on the fused score.
const (
	confidenceHighThreshold   = 0.8
	confidenceMediumThreshold = 0.6
)

// RankingConfig configures assembly of the final recommendation list.
type RankingConfig struct {
	DefaultLimit int
}

// DefaultRankingConfig returns the standard ranking configuration.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{DefaultLimit: 10}
}

// Assemble sorts candidates by fused score (stable, descending), truncates
// to limit and attaches confidence labels and reasons. Ties keep the
// original candidate order. scores must be index-aligned with candidates.
func Assemble(requester RequesterProfile, candidates []SitterProfile, scores []ScoreSet, limit int) []Recommendation {
	n := len(candidates)
	if n > len(scores) {
		n = len(scores)
	}

	recs := make([]Recommendation, 0, n)
	for i := 0; i < n; i++ {
		s := scores[i]
		s.Confidence = confidenceLabel(s.Fused)
		s.Reasons = buildReasons(requester, candidates[i])
		recs = append(recs, Recommendation{Sitter: candidates[i], Scores: s})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Scores.Fused > recs[j].Scores.Fused
	})

	if limit < 0 {
		limit = 0
	}
	if limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

func confidenceLabel(fused float64) string {
	switch {
	case fused >= confidenceHighThreshold:
		return ConfidenceHigh
	case fused >= confidenceMediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Reason rule thresholds over raw sitter attributes. Reasons are derived
// from the candidate record, never from the fused score.
const (
	reasonRatingThreshold     = 4.5
	reasonExperienceThreshold = 5.0
	reasonResponseThreshold   = 0.9
)

func buildReasons(requester RequesterProfile, sitter SitterProfile) []string {
	reasons := []string{}

	if sitter.Rating >= reasonRatingThreshold {
		reasons = append(reasons, "High ratings")
	}
	if len(sitter.Certifications) > 0 {
		reasons = append(reasons, "Certified")
	}
	if sitter.Insured {
		reasons = append(reasons, "Insured")
	}
	if sitter.YearsExperience >= reasonExperienceThreshold {
		reasons = append(reasons, "Experienced")
	}
	if sitter.ResponseRate >= reasonResponseThreshold {
		reasons = append(reasons, "Responsive")
	}
	if coversServices(sitter.Services, requester.Preferences.Services) {
		reasons = append(reasons, "Offers all requested services")
	}

	return reasons
}

// coversServices reports whether offered contains every requested service,
// case-insensitively. An empty request list never matches.
func coversServices(offered, requested []string) bool {
	if len(requested) == 0 {
		return false
	}
	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := have[strings.ToLower(strings.TrimSpace(s))]; !ok {
			return false
		}
	}
	return true
}

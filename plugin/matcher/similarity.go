package matcher

import "math"

// CosineSimilarity computes the cosine similarity of two vectors.
// It returns 0.0 when the vectors differ in length or either has zero
// magnitude, so mixed-dimension or degenerate inputs never panic and never
// produce a misleading score.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ContentScore converts cosine similarity into a component score in [0,1].
// Negative similarity clamps to zero.
func ContentScore(requester, candidate []float32) float64 {
	return clamp01(CosineSimilarity(requester, candidate))
}

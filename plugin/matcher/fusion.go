package matcher

import (
	"math"

	"github.com/pkg/errors"
)

// FusionWeights configures the linear combination of the three signal
// scores. Weights must be non-negative and sum to 1.0 so that fused scores
// stay in [0,1] whenever the inputs do.
type FusionWeights struct {
	Content       float64
	Collaborative float64
	Rerank        float64
}

// DefaultFusionWeights returns the standard weighting.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Content:       0.4,
		Collaborative: 0.3,
		Rerank:        0.3,
	}
}

const weightSumTolerance = 1e-6

// Validate checks the weights invariant.
func (w FusionWeights) Validate() error {
	if w.Content < 0 || w.Collaborative < 0 || w.Rerank < 0 {
		return errors.New("fusion weights must be non-negative")
	}
	sum := w.Content + w.Collaborative + w.Rerank
	if math.Abs(sum-1.0) > weightSumTolerance {
		return errors.Errorf("fusion weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Fuse combines the component scores into a single value in [0,1].
func (w FusionWeights) Fuse(content, collaborative, rerank float64) float64 {
	fused := w.Content*content + w.Collaborative*collaborative + w.Rerank*rerank
	return clamp01(fused)
}

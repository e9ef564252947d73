// Package inclusivity combines the reach, strength and visual checks into a
// single weighted score in [0, 1].
package inclusivity

import "math"

// Weights holds the contribution of each component. They sum to 1.
type Weights struct {
	Reach    float64 `json:"reach"`
	Strength float64 `json:"strength"`
	Visual   float64 `json:"visual"`
}

// Fixed component weights.
const (
	ReachWeight    = 0.4
	StrengthWeight = 0.3
	VisualWeight   = 0.3
)

// DefaultWeights returns the weights used for every run.
func DefaultWeights() Weights {
	return Weights{Reach: ReachWeight, Strength: StrengthWeight, Visual: VisualWeight}
}

// Components records which checks passed.
type Components struct {
	Reach    bool `json:"reach"`
	Strength bool `json:"strength"`
	Visual   bool `json:"visual"`
}

// Index is the inclusivity score together with the inputs that produced it.
type Index struct {
	Score      float64    `json:"score"`
	Weights    Weights    `json:"weights"`
	Components Components `json:"components"`
}

func indicator(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// Compute returns the weighted index for the three check results.
func Compute(reach, strength, visual bool) Index {
	w := DefaultWeights()
	score := indicator(reach)*w.Reach +
		indicator(strength)*w.Strength +
		indicator(visual)*w.Visual

	return Index{
		Score:      clamp01(score),
		Weights:    w,
		Components: Components{Reach: reach, Strength: strength, Visual: visual},
	}
}

// Delta returns cur.Score - prev.Score, or nil when either index is missing.
func Delta(prev, cur *Index) *float64 {
	if prev == nil || cur == nil {
		return nil
	}
	d := cur.Score - prev.Score
	return &d
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

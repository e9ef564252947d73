package inclusivity

import (
	"math"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name                    string
		reach, strength, visual bool
		want                    float64
	}{
		{name: "all pass", reach: true, strength: true, visual: true, want: 1.0},
		{name: "all fail", want: 0.0},
		{name: "reach only", reach: true, want: 0.4},
		{name: "strength only", strength: true, want: 0.3},
		{name: "visual only", visual: true, want: 0.3},
		{name: "strength and visual", strength: true, visual: true, want: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Compute(tt.reach, tt.strength, tt.visual)
			if math.Abs(idx.Score-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", idx.Score, tt.want)
			}
			if idx.Weights != DefaultWeights() {
				t.Errorf("Weights = %+v, want %+v", idx.Weights, DefaultWeights())
			}
			want := Components{Reach: tt.reach, Strength: tt.strength, Visual: tt.visual}
			if idx.Components != want {
				t.Errorf("Components = %+v, want %+v", idx.Components, want)
			}
		})
	}
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w != (Weights{Reach: 0.4, Strength: 0.3, Visual: 0.3}) {
		t.Errorf("DefaultWeights() = %+v", w)
	}
	if math.Abs(w.Reach+w.Strength+w.Visual-1.0) > 1e-9 {
		t.Errorf("weights sum to %v", w.Reach+w.Strength+w.Visual)
	}

	idx := Compute(true, true, true)
	idx.Weights.Reach = 0.9
	if DefaultWeights().Reach != ReachWeight || Compute(true, false, false).Score != ReachWeight {
		t.Error("changing a returned index altered the default weights")
	}
}

func TestDelta(t *testing.T) {
	prev := Compute(true, false, false)
	cur := Compute(true, true, true)

	d := Delta(&prev, &cur)
	if d == nil {
		t.Fatal("Delta() = nil")
	}
	if math.Abs(*d-0.6) > 1e-9 {
		t.Errorf("Delta() = %v, want 0.6", *d)
	}
	if Delta(nil, &cur) != nil {
		t.Error("Delta(nil, cur) should be nil")
	}
}

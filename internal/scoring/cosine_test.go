package scoring

import (
	"math"
	"testing"
)

func TestCosine_Identical(t *testing.T) {
	a := []float32{0.3, -1.2, 4}
	if got := Cosine(a, a); math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine(a, a) = %v, want 1", got)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {3, 2, 1}},
		{{0.5, -0.5}, {-1, 0.25}},
		{{1, 0, 0, 0}, {0.1, 0.9, 0.3, 0}},
	}
	for _, p := range pairs {
		if Cosine(p[0], p[1]) != Cosine(p[1], p[0]) {
			t.Errorf("Cosine not symmetric for %v / %v", p[0], p[1])
		}
	}
}

func TestCosine_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"both empty", nil, nil},
		{"one empty", []float32{1}, nil},
		{"zero vector", []float32{0, 0}, []float32{1, 1}},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Cosine(tc.a, tc.b); got != 0 {
				t.Errorf("Cosine = %v, want 0", got)
			}
		})
	}
}

func TestSimilarity_ClampsNegative(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if got := Cosine(a, b); math.Abs(got+1) > 1e-9 {
		t.Errorf("Cosine = %v, want -1", got)
	}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("Similarity = %v, want 0", got)
	}
}

func TestSimilarity_Orthogonal(t *testing.T) {
	if got := Similarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("Similarity = %v, want 0", got)
	}
}

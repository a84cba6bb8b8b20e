package scoring

import "math"

// Cosine returns (a·b)/(‖a‖‖b‖) in [-1,1].
// Empty, zero-norm and dimension-mismatched pairs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// float rounding can push |sim| slightly past 1
	return math.Max(-1, math.Min(1, sim))
}

// Similarity is Cosine clamped to [0,1]: opposite vectors carry no relevance.
func Similarity(a, b []float32) float64 {
	return clamp01(Cosine(a, b))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

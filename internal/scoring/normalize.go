package scoring

// MinMax rescales scores to [0,1]. When every score is equal the result is
// 0.5 for all of them.
func MinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	span := hi - lo
	for i, s := range scores {
		if span == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = clamp01((s - lo) / span)
	}
	return out
}

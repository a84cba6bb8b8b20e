package scoring

import "sort"

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// Ranking returns positions with a positive score ordered by score
// descending. Ties keep position order.
func Ranking(scores []float64) []int {
	ranked := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})
	return ranked
}

// RRF fuses rankings over n documents: score(d) = Σ 1/(k + rank_i(d)),
// rank 1-based. Documents missing from every ranking score 0.
// k <= 0 falls back to DefaultRRFK.
func RRF(n, k int, rankings ...[]int) []float64 {
	if k <= 0 {
		k = DefaultRRFK
	}
	out := make([]float64, n)
	for _, ranking := range rankings {
		for rank, pos := range ranking {
			if pos < 0 || pos >= n {
				continue
			}
			out[pos] += 1.0 / float64(k+rank+1)
		}
	}
	return out
}

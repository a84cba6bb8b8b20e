package scoring

import (
	"math"
	"sort"

	"github.com/kailas-cloud/ideadex/internal/domain/search/profile"
	"github.com/kailas-cloud/ideadex/internal/domain/search/result"
)

// Channels carries one document's normalized channel scores.
type Channels struct {
	BM25   float64
	Vector float64
	RRF    float64
}

// Combine returns round(Σ wᵢ × normᵢ × 100) clamped to [0,100].
func Combine(norm Channels, w profile.Weights) int {
	v := w.BM25*clamp01(norm.BM25) + w.Vector*clamp01(norm.Vector) + w.RRF*clamp01(norm.RRF)
	score := int(math.Round(v * result.MaxMatchScore))
	if score < 0 {
		return 0
	}
	if score > result.MaxMatchScore {
		return result.MaxMatchScore
	}
	return score
}

// Order returns positions sorted by composite score descending.
// Equal scores keep position order.
func Order(composite []int) []int {
	order := make([]int, len(composite))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return composite[order[a]] > composite[order[b]]
	})
	return order
}

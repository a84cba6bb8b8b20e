package profile

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/ideadex/internal/domain"
)

// Kind is the closed set of weight profiles.
type Kind string

// Profile kinds.
const (
	Balanced  Kind = "balanced"
	Keyword   Kind = "keyword"
	Semantic  Kind = "semantic"
	Consensus Kind = "consensus"
	// Custom carries caller-supplied weights.
	Custom Kind = "custom"
)

// Adaptive selection thresholds (token counts).
const (
	KeywordMaxTokens  = 2
	SemanticMinTokens = 11
)

// sumTolerance bounds float drift when checking that weights sum to 1.
const sumTolerance = 1e-9

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case Balanced, Keyword, Semantic, Consensus, Custom:
		return true
	}
	return false
}

// Weights is the fusion triple applied to normalized channel scores.
type Weights struct {
	BM25   float64
	Vector float64
	RRF    float64
}

// Sum returns BM25 + Vector + RRF.
func (w Weights) Sum() float64 { return w.BM25 + w.Vector + w.RRF }

// Normalized scales the weights so they sum to 1.0.
func (w Weights) Normalized() (Weights, error) {
	if w.BM25 < 0 || w.Vector < 0 || w.RRF < 0 {
		return Weights{}, fmt.Errorf("%w: weights must be non-negative", domain.ErrInvalidWeights)
	}
	for _, v := range []float64{w.BM25, w.Vector, w.RRF} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Weights{}, fmt.Errorf("%w: weights must be finite", domain.ErrInvalidWeights)
		}
	}
	sum := w.Sum()
	if sum == 0 {
		return Weights{}, fmt.Errorf("%w: weights must not all be zero", domain.ErrInvalidWeights)
	}
	if math.Abs(sum-1) <= sumTolerance {
		return w, nil
	}
	return Weights{BM25: w.BM25 / sum, Vector: w.Vector / sum, RRF: w.RRF / sum}, nil
}

// Profile is an immutable named weight triple.
type Profile struct {
	kind    Kind
	weights Weights
}

// Kind returns the profile kind.
func (p Profile) Kind() Kind { return p.kind }

// Name returns the profile name as exposed to clients.
func (p Profile) Name() string { return string(p.kind) }

// Weights returns the fusion weights (sum 1.0).
func (p Profile) Weights() Weights { return p.weights }

// IsZero reports whether p is the zero Profile (no profile chosen).
func (p Profile) IsZero() bool { return p.kind == "" }

// WithoutVector redistributes the vector weight proportionally over BM25 and
// RRF, used when the semantic channel produced nothing.
func (p Profile) WithoutVector() Profile {
	w := p.weights
	rest := w.BM25 + w.RRF
	if rest == 0 {
		return Profile{kind: p.kind, weights: Weights{BM25: 0.5, RRF: 0.5}}
	}
	return Profile{kind: p.kind, weights: Weights{BM25: w.BM25 / rest, RRF: w.RRF / rest}}
}

// Get returns one of the fixed profiles. Custom is not obtainable by kind.
func Get(k Kind) (Profile, error) {
	switch k {
	case Balanced:
		return Profile{kind: Balanced, weights: Weights{BM25: 0.4, Vector: 0.4, RRF: 0.2}}, nil
	case Keyword:
		return Profile{kind: Keyword, weights: Weights{BM25: 0.6, Vector: 0.2, RRF: 0.2}}, nil
	case Semantic:
		return Profile{kind: Semantic, weights: Weights{BM25: 0.2, Vector: 0.6, RRF: 0.2}}, nil
	case Consensus:
		return Profile{kind: Consensus, weights: Weights{BM25: 0.25, Vector: 0.25, RRF: 0.5}}, nil
	case Custom:
		return Profile{}, fmt.Errorf("%w: custom profile requires weights", domain.ErrUnknownProfile)
	default:
		return Profile{}, fmt.Errorf("%w: %q", domain.ErrUnknownProfile, k)
	}
}

// MustGet is Get for the fixed kinds; it panics on Custom or unknown kinds.
func MustGet(k Kind) Profile {
	p, err := Get(k)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse resolves a profile name. An empty name returns the zero Profile,
// meaning "select adaptively".
func Parse(name string) (Profile, error) {
	if name == "" {
		return Profile{}, nil
	}
	return Get(Kind(name))
}

// NewCustom validates custom weights and normalizes them to sum 1.0.
func NewCustom(w Weights) (Profile, error) {
	n, err := w.Normalized()
	if err != nil {
		return Profile{}, err
	}
	return Profile{kind: Custom, weights: n}, nil
}

// List returns the fixed profiles in a stable order.
func List() []Profile {
	return []Profile{MustGet(Balanced), MustGet(Keyword), MustGet(Semantic), MustGet(Consensus)}
}

// Adaptive picks a profile from the query token count:
// keyword for short queries, semantic for long ones, balanced otherwise.
func Adaptive(tokenCount int) Profile {
	switch {
	case tokenCount <= KeywordMaxTokens:
		return MustGet(Keyword)
	case tokenCount >= SemanticMinTokens:
		return MustGet(Semantic)
	default:
		return MustGet(Balanced)
	}
}

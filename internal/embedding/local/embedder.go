// Package local provides a dependency-free embedder based on feature hashing.
// Vectors capture lexical overlap only; they keep the semantic channel alive
// when no embedding provider is configured.
package local

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/nlp"
)

// DefaultDimensions matches common small sentence-embedding models.
const DefaultDimensions = 384

// Embedder hashes tokens and character trigrams into a fixed-size vector.
type Embedder struct {
	dims int
}

// NewEmbedder creates a hashing embedder. dims <= 0 uses DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dims }

// Embed implements domain.Embedder. Text without tokens yields ErrEmptyEmbedding.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("local embed: %w", err)
	}

	tokens := nlp.Tokenize(text)
	if len(tokens) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("local embed: %w", domain.ErrEmptyEmbedding)
	}

	vec := make([]float32, e.dims)
	for _, t := range tokens {
		e.add(vec, t, 1)
		// trigrams let near-spellings share features
		r := []rune("#" + t + "#")
		for i := 0; i+3 <= len(r); i++ {
			e.add(vec, string(r[i:i+3]), 0.5)
		}
	}

	normalize(vec)
	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: len(tokens),
		TotalTokens:  len(tokens),
	}, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

// add uses the low bits for the bucket and the top bit for the sign.
func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dims)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

package health

import (
	"context"

	"github.com/kailas-cloud/ideadex/internal/domain/document"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusSource loads the document corpus.
type CorpusSource interface {
	Documents(ctx context.Context) ([]document.Document, error)
}

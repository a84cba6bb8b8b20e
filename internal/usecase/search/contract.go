package search

import (
	"context"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/nlp"
	"github.com/kailas-cloud/ideadex/internal/vectorstore"
)

// VectorStore holds per-session document embeddings.
type VectorStore interface {
	AddDocuments(
		ctx context.Context, collection string,
		docs []string, embeddings [][]float32, metadatas []map[string]string,
	) ([]string, error)
	Query(ctx context.Context, collection string, embedding []float32, topK int) (vectorstore.QueryResult, error)
	DeleteCollection(ctx context.Context, collection string) bool
}

// QueryProcessor normalizes raw queries.
type QueryProcessor interface {
	Enhance(ctx context.Context, raw string, opts nlp.EnhanceOptions) nlp.Query
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed search or indexing request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidWeights signals a custom weight profile that cannot be normalized.
	ErrInvalidWeights = errors.New("invalid weights")
	// ErrUnknownProfile signals a profile name outside the fixed set.
	ErrUnknownProfile = errors.New("unknown weight profile")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted provider token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmptyEmbedding signals that a provider returned no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrEnhancementUnavailable signals that the text oracle could not enhance a query.
	ErrEnhancementUnavailable = errors.New("enhancement unavailable")
	// ErrCorpusUnavailable signals that the document source could not be read.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrInvalidPeriod signals a usage period outside day and month.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Package corpus supplies the documents a search runs over.
package corpus

import (
	"context"
	"sync"

	"github.com/kailas-cloud/ideadex/internal/domain/document"
)

// Source returns the current document set in a stable order.
type Source interface {
	Documents(ctx context.Context) ([]document.Document, error)
}

// Static is an in-memory source whose contents can be replaced at runtime.
type Static struct {
	mu   sync.RWMutex
	docs []document.Document
}

// NewStatic creates a source over docs.
func NewStatic(docs []document.Document) *Static {
	return &Static{docs: append([]document.Document(nil), docs...)}
}

// Documents implements Source.
func (s *Static) Documents(_ context.Context) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]document.Document(nil), s.docs...), nil
}

// Replace swaps the document set.
func (s *Static) Replace(docs []document.Document) {
	s.mu.Lock()
	s.docs = append([]document.Document(nil), docs...)
	s.mu.Unlock()
}

// Len returns the number of documents.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

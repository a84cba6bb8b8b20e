// Package vectorstore is an ephemeral in-memory vector index keyed by
// collection (one per session or corpus). Collections live until they are
// deleted explicitly.
package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/ideadex/internal/scoring"
)

// QueryResult holds index-aligned hits ordered by ascending distance.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
	// Distances are 1 - cosine similarity; smaller is closer.
	Distances []float64
}

// Len returns the number of hits.
func (r QueryResult) Len() int { return len(r.IDs) }

// Stats describes one collection.
type Stats struct {
	Name      string
	Count     int
	Dimension int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{collections: make(map[string]*collection), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCollection creates an empty collection. Returns false if it already existed.
func (s *Store) CreateCollection(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrInvalidCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[id]; ok {
		return false, nil
	}
	s.collections[id] = newCollection(id, s.now())
	return true, nil
}

// AddDocuments appends index-aligned documents, embeddings and optional
// metadatas, creating the collection on first insert. Returns generated ids.
func (s *Store) AddDocuments(
	_ context.Context, id string,
	docs []string, embeddings [][]float32, metadatas []map[string]string,
) ([]string, error) {
	if id == "" {
		return nil, ErrInvalidCollection
	}
	if len(docs) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d documents, %d embeddings", ErrLengthMismatch, len(docs), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.collections[id]
	if !ok {
		c = newCollection(id, now)
	}
	ids, err := c.append(docs, embeddings, metadatas, now)
	if err != nil {
		return nil, err
	}
	s.collections[id] = c
	return ids, nil
}

// Query returns the topK entries closest to embedding. topK <= 0 returns all.
// A missing or empty collection yields an empty result, not an error.
func (s *Store) Query(_ context.Context, id string, embedding []float32, topK int) (QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok || c.len() == 0 || len(embedding) == 0 {
		return QueryResult{}, nil
	}
	if c.dimension != len(embedding) {
		return QueryResult{}, fmt.Errorf("%w: query has %d dims, collection %d",
			ErrDimensionMismatch, len(embedding), c.dimension)
	}

	type hit struct {
		index    int
		distance float64
	}
	hits := make([]hit, c.len())
	for i, e := range c.embeddings {
		hits[i] = hit{index: i, distance: 1 - scoring.Cosine(embedding, e)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	if topK > 0 && topK < len(hits) {
		hits = hits[:topK]
	}

	res := QueryResult{
		IDs:       make([]string, len(hits)),
		Documents: make([]string, len(hits)),
		Metadatas: make([]map[string]string, len(hits)),
		Distances: make([]float64, len(hits)),
	}
	for i, h := range hits {
		res.IDs[i] = c.ids[h.index]
		res.Documents[i] = c.documents[h.index]
		res.Metadatas[i] = cloneMeta(c.metadatas[h.index])
		res.Distances[i] = h.distance
	}
	return res, nil
}

// DeleteCollection drops the whole arena. Returns false if it did not exist.
func (s *Store) DeleteCollection(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[id]; !ok {
		return false
	}
	delete(s.collections, id)
	return true
}

// Stats returns collection statistics.
func (s *Store) Stats(_ context.Context, id string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return Stats{}, fmt.Errorf("%w: %q", ErrCollectionNotFound, id)
	}
	return statsOf(c), nil
}

// List returns stats for every collection, sorted by name.
func (s *Store) List(_ context.Context) []Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stats, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, statsOf(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func statsOf(c *collection) Stats {
	return Stats{
		Name:      c.name,
		Count:     c.len(),
		Dimension: c.dimension,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

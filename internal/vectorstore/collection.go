package vectorstore

import (
	"fmt"
	"time"
)

// collection is an arena of parallel arrays indexed by insertion order.
// Invariant: documents, embeddings, metadatas and ids always have equal length.
type collection struct {
	name       string
	documents  []string
	embeddings [][]float32
	metadatas  []map[string]string
	ids        []string
	dimension  int
	createdAt  time.Time
	updatedAt  time.Time
}

func newCollection(name string, now time.Time) *collection {
	return &collection{name: name, createdAt: now, updatedAt: now}
}

func (c *collection) len() int { return len(c.ids) }

// append validates the whole batch before touching the arena so a rejected
// batch leaves the collection unchanged.
func (c *collection) append(
	docs []string, embeddings [][]float32, metadatas []map[string]string, now time.Time,
) ([]string, error) {
	if len(docs) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d documents, %d embeddings", ErrLengthMismatch, len(docs), len(embeddings))
	}
	if metadatas != nil && len(metadatas) != len(docs) {
		return nil, fmt.Errorf("%w: %d documents, %d metadatas", ErrLengthMismatch, len(docs), len(metadatas))
	}

	dim := c.dimension
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("%w: embedding %d is empty", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(e)
		}
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dims, want %d", ErrDimensionMismatch, i, len(e), dim)
		}
	}

	ids := make([]string, len(docs))
	ts := now.UnixMilli()
	for i := range docs {
		index := c.len()
		ids[i] = fmt.Sprintf("%s_%d_%d", c.name, index, ts)

		vec := make([]float32, len(embeddings[i]))
		copy(vec, embeddings[i])

		var meta map[string]string
		if metadatas != nil {
			meta = cloneMeta(metadatas[i])
		}

		c.documents = append(c.documents, docs[i])
		c.embeddings = append(c.embeddings, vec)
		c.metadatas = append(c.metadatas, meta)
		c.ids = append(c.ids, ids[i])
	}

	c.dimension = dim
	c.updatedAt = now
	return ids, nil
}

func cloneMeta(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

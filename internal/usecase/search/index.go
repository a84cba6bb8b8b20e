package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/ideadex/internal/domain/document"
	"github.com/kailas-cloud/ideadex/internal/logger"
	"github.com/kailas-cloud/ideadex/internal/metrics"
)

// Metadata keys written next to every stored vector.
const (
	metaDocID    = "doc_id"
	metaPosition = "position"
)

// SessionCollectionPrefix namespaces session indexes inside the vector store.
const SessionCollectionPrefix = "session:"

// Indexing outcomes that leave the session without vectors.
var (
	ErrIndexTimeout = errors.New("indexing timed out")
	ErrIndexReset   = errors.New("session reset during indexing")
)

// IndexState describes the vector index of one session.
type IndexState struct {
	Indexed            bool
	IndexingInProgress bool
	LastIndexTime      time.Time
	DocumentCount      int
	VectorCount        int

	fingerprint uint64
}

// CollectionName returns the vector store collection backing a session.
func CollectionName(session string) string { return SessionCollectionPrefix + session }

// fresh reports whether the index was built from the corpus with fingerprint fp.
func (s IndexState) fresh(fp uint64, n int) bool {
	return s.Indexed && s.DocumentCount == n && s.fingerprint == fp
}

// indexer embeds session corpora into the vector store. At most one indexing
// run per session is in flight; concurrent callers share its outcome.
type indexer struct {
	store   VectorStore
	embed   Embedder
	pool    *ants.Pool
	extract document.TextExtractor
	timeout time.Duration

	group singleflight.Group

	// writeMu serializes collection writes with their state commit.
	writeMu sync.Mutex

	mu     sync.Mutex
	states map[string]IndexState
	// gens is bumped by reset; a run started under an older generation
	// must not commit.
	gens map[string]uint64
}

func newIndexer(
	store VectorStore, embed Embedder, pool *ants.Pool,
	extract document.TextExtractor, timeout time.Duration,
) *indexer {
	return &indexer{
		store:   store,
		embed:   embed,
		pool:    pool,
		extract: extract,
		timeout: timeout,
		states:  make(map[string]IndexState),
		gens:    make(map[string]uint64),
	}
}

func (ix *indexer) state(session string) IndexState {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.states[session]
}

func (ix *indexer) generation(session string) uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.gens[session]
}

// commit applies fn to the session state unless the session was reset after
// gen was taken. It reports whether fn was applied.
func (ix *indexer) commit(session string, gen uint64, fn func(*IndexState)) (IndexState, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.gens[session] != gen {
		return IndexState{}, false
	}
	st := ix.states[session]
	fn(&st)
	ix.states[session] = st
	return st, true
}

// fingerprint hashes the ordered ids and texts of a corpus.
func (ix *indexer) fingerprint(docs []document.Document) uint64 {
	h := xxhash.New()
	for i := range docs {
		_, _ = h.WriteString(docs[i].ID())
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(ix.extract(docs[i]))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// ensure indexes docs for session unless the current index is fresh.
func (ix *indexer) ensure(ctx context.Context, session string, docs []document.Document) (IndexState, error) {
	fp := ix.fingerprint(docs)

	// a shared run may have indexed another corpus; try once more for ours
	for attempt := 0; ; attempt++ {
		if st := ix.state(session); st.fresh(fp, len(docs)) {
			return st, nil
		}

		ch := ix.group.DoChan(session, func() (any, error) {
			// a caller leaving early must not cancel the shared run
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ix.timeout)
			defer cancel()
			return ix.run(runCtx, session, docs, fp)
		})

		select {
		case <-ctx.Done():
			return ix.state(session), fmt.Errorf("wait for index: %w", ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				return ix.state(session), res.Err
			}
			st := res.Val.(IndexState)
			if st.fresh(fp, len(docs)) || attempt > 0 {
				return st, nil
			}
		}
	}
}

func (ix *indexer) run(ctx context.Context, session string, docs []document.Document, fp uint64) (IndexState, error) {
	log := logger.FromContext(ctx).With(zap.Int("documents", len(docs)))

	// another run may have finished while this one waited
	if st := ix.state(session); st.fresh(fp, len(docs)) {
		return st, nil
	}

	gen := ix.generation(session)
	ix.commit(session, gen, func(s *IndexState) { s.IndexingInProgress = true })
	start := time.Now()

	vectors := ix.embedAll(ctx, docs)

	if err := ctx.Err(); err != nil {
		st, _ := ix.commit(session, gen, func(s *IndexState) {
			s.IndexingInProgress = false
			s.Indexed = false
		})
		log.Warn("session indexing timed out, continuing without vectors",
			zap.Duration("timeout", ix.timeout), zap.Error(err))
		return st, fmt.Errorf("%w after %s", ErrIndexTimeout, ix.timeout)
	}

	texts := make([]string, 0, len(docs))
	embs := make([][]float32, 0, len(docs))
	metas := make([]map[string]string, 0, len(docs))
	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		texts = append(texts, ix.extract(docs[i]))
		embs = append(embs, vec)
		metas = append(metas, map[string]string{
			metaDocID:    docs[i].ID(),
			metaPosition: strconv.Itoa(i),
		})
	}

	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()
	if ix.generation(session) != gen {
		return IndexState{}, ErrIndexReset
	}

	coll := CollectionName(session)
	ix.store.DeleteCollection(ctx, coll)
	if len(embs) > 0 {
		if _, err := ix.store.AddDocuments(ctx, coll, texts, embs, metas); err != nil {
			ix.commit(session, gen, func(s *IndexState) {
				metrics.IndexedDocuments.Sub(float64(s.VectorCount))
				s.IndexingInProgress = false
				s.Indexed = false
				s.VectorCount = 0
			})
			return IndexState{}, fmt.Errorf("store vectors: %w", err)
		}
	}

	duration := time.Since(start)
	metrics.IndexingDuration.Observe(duration.Seconds())

	st, ok := ix.commit(session, gen, func(s *IndexState) {
		metrics.IndexedDocuments.Add(float64(len(embs) - s.VectorCount))
		*s = IndexState{
			Indexed:       true,
			LastIndexTime: time.Now(),
			DocumentCount: len(docs),
			VectorCount:   len(embs),
			fingerprint:   fp,
		}
	})
	if !ok {
		ix.store.DeleteCollection(ctx, coll)
		return IndexState{}, ErrIndexReset
	}
	log.Info("session indexed",
		zap.Int("vectors", len(embs)),
		zap.Int("failed", len(docs)-len(embs)),
		zap.Duration("duration", duration),
	)
	return st, nil
}

// embedAll embeds every document on the worker pool. Failed documents get a
// nil vector and are logged; they never abort the batch.
func (ix *indexer) embedAll(ctx context.Context, docs []document.Document) [][]float32 {
	log := logger.FromContext(ctx)
	vectors := make([][]float32, len(docs))

	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			res, err := ix.embed.Embed(ctx, ix.extract(docs[i]))
			if err != nil || !res.Usable() {
				if err == nil {
					err = errors.New("empty vector")
				}
				log.Warn("document embedding failed", zap.String("doc_id", docs[i].ID()), zap.Error(err))
				return
			}
			vectors[i] = res.Embedding
		}
		if err := ix.pool.Submit(task); err != nil {
			// pool closed or overloaded: embed inline
			task()
		}
	}
	wg.Wait()
	return vectors
}

// reset drops the session index and invalidates any run in flight.
func (ix *indexer) reset(ctx context.Context, session string) bool {
	ix.mu.Lock()
	st, ok := ix.states[session]
	delete(ix.states, session)
	ix.gens[session]++
	ix.mu.Unlock()
	ix.group.Forget(session)

	metrics.IndexedDocuments.Sub(float64(st.VectorCount))
	dropped := ix.store.DeleteCollection(ctx, CollectionName(session))
	return ok || dropped
}

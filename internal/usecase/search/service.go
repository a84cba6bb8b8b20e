package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ideadex/internal/domain/document"
	"github.com/kailas-cloud/ideadex/internal/domain/search/profile"
	"github.com/kailas-cloud/ideadex/internal/domain/search/request"
	"github.com/kailas-cloud/ideadex/internal/domain/search/result"
	"github.com/kailas-cloud/ideadex/internal/logger"
	"github.com/kailas-cloud/ideadex/internal/metrics"
	"github.com/kailas-cloud/ideadex/internal/nlp"
	"github.com/kailas-cloud/ideadex/internal/scoring"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultIndexTimeout   = 10 * time.Second
	DefaultWorkerPoolSize = 8
)

// Response reasons.
const (
	ReasonEmptyQuery  = "empty query"
	ReasonEmptyCorpus = "empty corpus"
	ReasonNoMatches   = "no matches"
)

// Config tunes the ranking pipeline.
type Config struct {
	BM25           scoring.Params
	RRFK           int
	IndexTimeout   time.Duration
	WorkerPoolSize int
	Extractor      document.TextExtractor
	// QueryEmbedder embeds queries when documents and queries need
	// different instructions. Defaults to the document embedder.
	QueryEmbedder Embedder
}

// Timings are per-stage wall-clock durations.
type Timings struct {
	NLP     time.Duration
	Index   time.Duration
	Scoring time.Duration
	Total   time.Duration
}

// Metadata explains how a ranking was produced.
type Metadata struct {
	RawQuery         string
	CorrectedQuery   string
	Tokens           []string
	Expanded         []string
	Corrections      map[string]string
	AIEnhanced       bool
	Profile          string
	Adaptive         bool
	Weights          profile.Weights
	Channels         []result.Channel
	TotalDocuments   int
	MatchedDocuments int
	Reason           string
	Timings          Timings
	Index            IndexState
}

// Response is a ranked result list plus metadata.
type Response struct {
	Results  []result.Result
	Metadata Metadata
}

// Service runs hybrid searches over caller-supplied corpora.
type Service struct {
	nlp        QueryProcessor
	queryEmbed Embedder
	index      *indexer
	pool       *ants.Pool
	cfg        Config
}

// New creates a search service. embed vectorizes corpus documents; nil
// disables the semantic channel.
func New(proc QueryProcessor, store VectorStore, embed Embedder, cfg Config) (*Service, error) {
	if cfg.BM25 == (scoring.Params{}) {
		cfg.BM25 = scoring.DefaultParams()
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = scoring.DefaultRRFK
	}
	if cfg.IndexTimeout <= 0 {
		cfg.IndexTimeout = DefaultIndexTimeout
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultWorkerPoolSize
	}
	if cfg.Extractor == nil {
		cfg.Extractor = document.DefaultText
	}

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	s := &Service{nlp: proc, queryEmbed: cfg.QueryEmbedder, pool: pool, cfg: cfg}
	if s.queryEmbed == nil {
		s.queryEmbed = embed
	}
	if embed != nil {
		s.index = newIndexer(store, embed, pool, cfg.Extractor, cfg.IndexTimeout)
	}
	return s, nil
}

// Close releases the embedding worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Search ranks docs against the request query.
func (s *Service) Search(ctx context.Context, req request.Request, docs []document.Document) (Response, error) {
	start := time.Now()
	ctx = logger.With(ctx, zap.String("session", req.Session()))
	log := logger.FromContext(ctx)

	resp, err := s.search(ctx, req, docs)
	resp.Metadata.Timings.Total = time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(profileLabel(resp.Metadata.Profile), status).Inc()
	metrics.SearchDuration.WithLabelValues("total").Observe(resp.Metadata.Timings.Total.Seconds())

	if err != nil {
		return Response{}, err
	}

	log.Debug("search completed",
		zap.String("profile", resp.Metadata.Profile),
		zap.Int("total", resp.Metadata.TotalDocuments),
		zap.Int("returned", len(resp.Results)),
		zap.Duration("duration", resp.Metadata.Timings.Total),
	)
	return resp, nil
}

func (s *Service) search(ctx context.Context, req request.Request, docs []document.Document) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}

	tokenized := make([][]string, len(docs))
	for i := range docs {
		tokenized[i] = nlp.Tokenize(s.cfg.Extractor(docs[i]))
	}
	corpus := scoring.NewCorpus(tokenized)

	nlpStart := time.Now()
	q := s.nlp.Enhance(ctx, req.Query(), nlp.EnhanceOptions{
		Vocabulary: corpus.Vocabulary(),
		UseOracle:  req.AIEnhance(),
	})
	nlpTook := time.Since(nlpStart)
	metrics.SearchDuration.WithLabelValues("nlp").Observe(nlpTook.Seconds())

	prof, adaptive := req.Profile(), false
	if prof.IsZero() {
		prof, adaptive = profile.Adaptive(len(q.Tokens)), true
	}

	meta := Metadata{
		RawQuery:       q.Raw,
		CorrectedQuery: q.Corrected,
		Tokens:         q.Tokens,
		Expanded:       q.Expanded,
		Corrections:    q.Corrections,
		AIEnhanced:     q.AIEnhanced,
		Profile:        prof.Name(),
		Adaptive:       adaptive,
		Weights:        prof.Weights(),
		Channels:       []result.Channel{},
		TotalDocuments: len(docs),
		Timings:        Timings{NLP: nlpTook},
	}

	switch {
	case q.IsEmpty():
		meta.Reason = ReasonEmptyQuery
		return Response{Results: []result.Result{}, Metadata: meta}, nil
	case len(docs) == 0:
		meta.Reason = ReasonEmptyCorpus
		return Response{Results: []result.Result{}, Metadata: meta}, nil
	}

	var (
		lexical  []float64
		semantic []float64
		state    IndexState
		indexed  time.Duration
	)

	scoreStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexical = corpus.ScoreAll(q.Expanded, s.cfg.BM25)
		return nil
	})
	g.Go(func() error {
		var err error
		semantic, state, indexed, err = s.semanticPass(gctx, req.Session(), q, docs)
		return err
	})
	if err := g.Wait(); err != nil {
		return Response{}, err
	}
	meta.Index = state
	meta.Timings.Index = indexed

	hasVectors := semantic != nil
	if !hasVectors {
		semantic = make([]float64, len(docs))
		prof = prof.WithoutVector()
		meta.Weights = prof.Weights()
	}

	rankings := [][]int{scoring.Ranking(lexical)}
	meta.Channels = append(meta.Channels, result.ChannelBM25)
	if hasVectors {
		rankings = append(rankings, scoring.Ranking(semantic))
		meta.Channels = append(meta.Channels, result.ChannelVector)
	}
	meta.Channels = append(meta.Channels, result.ChannelRRF)
	fused := scoring.RRF(len(docs), s.cfg.RRFK, rankings...)

	normLex := scoring.MinMax(lexical)
	normSem := scoring.MinMax(semantic)
	normRRF := scoring.MinMax(fused)

	composite := make([]int, len(docs))
	for i := range docs {
		composite[i] = scoring.Combine(scoring.Channels{
			BM25:   normLex[i],
			Vector: normSem[i],
			RRF:    normRRF[i],
		}, meta.Weights)
	}

	results := make([]result.Result, 0, req.Limit())
	for _, i := range scoring.Order(composite) {
		if lexical[i] == 0 && semantic[i] == 0 {
			continue
		}
		if composite[i] < req.MinScore() {
			continue
		}
		meta.MatchedDocuments++
		if len(results) == req.Limit() {
			continue
		}
		results = append(results, result.New(docs[i], i,
			result.Score{Raw: lexical[i], Normalized: normLex[i]},
			result.Score{Raw: semantic[i], Normalized: normSem[i]},
			result.Score{Raw: fused[i], Normalized: normRRF[i]},
			composite[i],
		))
	}
	meta.Timings.Scoring = time.Since(scoreStart)
	metrics.SearchDuration.WithLabelValues("score").Observe(meta.Timings.Scoring.Seconds())
	for _, ch := range meta.Channels {
		metrics.SearchChannelsTotal.WithLabelValues(string(ch)).Inc()
	}

	if len(results) == 0 {
		meta.Reason = ReasonNoMatches
	}
	return Response{Results: results, Metadata: meta}, nil
}

// semanticPass returns per-position similarities in [0,1], or nil when no
// vector is available for the query or the corpus. Embedding and indexing
// failures are logged and never fail the search.
func (s *Service) semanticPass(
	ctx context.Context, session string, q nlp.Query, docs []document.Document,
) ([]float64, IndexState, time.Duration, error) {
	if s.index == nil {
		return nil, IndexState{}, 0, nil
	}
	log := logger.FromContext(ctx)

	start := time.Now()
	state, err := s.index.ensure(ctx, session, docs)
	took := time.Since(start)
	metrics.SearchDuration.WithLabelValues("index").Observe(took.Seconds())
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrIndexTimeout) {
			return nil, state, took, fmt.Errorf("semantic pass: %w", ctx.Err())
		}
		log.Warn("vector index unavailable", zap.Error(err))
		return nil, state, took, nil
	}
	if state.VectorCount == 0 {
		return nil, state, took, nil
	}

	emb, err := s.queryEmbed.Embed(ctx, q.Corrected)
	if err != nil || !emb.Usable() {
		log.Warn("query embedding unavailable", zap.Error(err))
		return nil, state, took, nil
	}

	hits, err := s.index.store.Query(ctx, CollectionName(session), emb.Embedding, 0)
	if err != nil {
		log.Warn("vector query failed", zap.Error(err))
		return nil, state, took, nil
	}

	sims := make([]float64, len(docs))
	for i := range hits.Len() {
		meta := hits.Metadatas[i]
		pos, err := strconv.Atoi(meta[metaPosition])
		if err != nil || pos < 0 || pos >= len(docs) || meta[metaDocID] != docs[pos].ID() {
			continue
		}
		sims[pos] = clamp01(1 - hits.Distances[i])
	}
	return sims, state, took, nil
}

// ResetSession drops the vector index of a session.
func (s *Service) ResetSession(ctx context.Context, session string) bool {
	if s.index == nil {
		return false
	}
	return s.index.reset(ctx, session)
}

// IndexState returns the vector index state of a session.
func (s *Service) IndexState(session string) IndexState {
	if s.index == nil {
		return IndexState{}
	}
	return s.index.state(session)
}

// SemanticEnabled reports whether an embedder is configured.
func (s *Service) SemanticEnabled() bool { return s.index != nil }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func profileLabel(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

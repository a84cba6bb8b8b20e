package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
	domdoc "github.com/kailas-cloud/ideadex/internal/domain/document"
	domusage "github.com/kailas-cloud/ideadex/internal/domain/usage"
	"github.com/kailas-cloud/ideadex/internal/domain/search/profile"
	"github.com/kailas-cloud/ideadex/internal/domain/search/request"
	"github.com/kailas-cloud/ideadex/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/ideadex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ideadex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ideadex/internal/usecase/usage"
	"github.com/kailas-cloud/ideadex/internal/vectorstore"
	"github.com/kailas-cloud/ideadex/internal/version"
)

// maxBodyBytes caps request bodies; inline corpora can be large.
const maxBodyBytes = 32 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Collections is the vector store surface exposed over HTTP.
type Collections interface {
	CreateCollection(ctx context.Context, id string) (bool, error)
	AddDocuments(
		ctx context.Context, id string,
		docs []string, embeddings [][]float32, metadatas []map[string]string,
	) ([]string, error)
	Query(ctx context.Context, id string, embedding []float32, topK int) (vectorstore.QueryResult, error)
	DeleteCollection(ctx context.Context, id string) bool
	Stats(ctx context.Context, id string) (vectorstore.Stats, error)
	List(ctx context.Context) []vectorstore.Stats
}

// Corpus supplies the default document set for searches.
type Corpus interface {
	Documents(ctx context.Context) ([]domdoc.Document, error)
}

// Limits bounds search result sizes.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Server implements ServerInterface.
type Server struct {
	search        *searchuc.Service
	collections   Collections
	corpus        Corpus
	health        *healthuc.Service
	usage         *usageuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. corpus may be nil, in which case
// every search must carry its documents.
func NewServer(
	search *searchuc.Service,
	collections Collections,
	corpus Corpus,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = request.MaxLimit
	}
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = request.DefaultLimit
	}
	s := &Server{
		search:      search,
		collections: collections,
		corpus:      corpus,
		health:      health,
		usage:       usageuc.New(nil),
		limits:      limits,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownProfile, http.StatusBadRequest, ErrorCodeUnknownProfile),
		sentinelHandler(domain.ErrInvalidWeights, http.StatusBadRequest, ErrorCodeInvalidWeights),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(vectorstore.ErrLengthMismatch, http.StatusBadRequest, ErrorCodeLengthMismatch),
		sentinelHandler(vectorstore.ErrDimensionMismatch, http.StatusBadRequest, ErrorCodeDimensionMismatch),
		sentinelHandler(vectorstore.ErrInvalidCollection, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(vectorstore.ErrCollectionNotFound, http.StatusNotFound, ErrorCodeCollectionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrCorpusUnavailable, http.StatusServiceUnavailable, ErrorCodeCorpusUnavailable),
		sentinelHandler(domain.ErrInvalidPeriod, http.StatusBadRequest, ErrorCodeInvalidPeriod),
	}
	return s
}

// WithUsage replaces the unlimited usage reporter.
func (s *Server) WithUsage(usage *usageuc.Service) *Server {
	if usage != nil {
		s.usage = usage
	}
	return s
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	searchReq, err := s.searchRequestFromAPI(req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	docs, err := s.documents(r.Context(), req.Documents)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), searchReq, docs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		items[i] = searchResultToAPI(&resp.Results[i])
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Items:    items,
		Metadata: metadataToAPI(resp.Metadata),
	})
}

// ListProfiles handles GET /profiles.
func (s *Server) ListProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles := profile.List()
	items := make([]Profile, len(profiles))
	for i, p := range profiles {
		items[i] = Profile{Name: p.Name(), Weights: weightsToAPI(p.Weights())}
	}
	writeJSON(w, http.StatusOK, ProfileListResponse{Items: items})
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	stats := s.collections.List(r.Context())
	items := make([]Collection, 0, len(stats))
	for _, st := range stats {
		if strings.HasPrefix(st.Name, searchuc.SessionCollectionPrefix) {
			continue
		}
		items = append(items, collectionToAPI(st))
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Items: items})
}

// CreateCollection handles PUT /collections/{collection}.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request, collection string) {
	if !s.userCollection(w, collection) {
		return
	}
	created, err := s.collections.CreateCollection(r.Context(), collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	st, err := s.collections.Stats(r.Context(), collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, collectionToAPI(st))
}

// GetCollection handles GET /collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request, collection string) {
	if !s.userCollection(w, collection) {
		return
	}
	st, err := s.collections.Stats(r.Context(), collection)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToAPI(st))
}

// DeleteCollection handles DELETE /collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request, collection string) {
	if !s.userCollection(w, collection) {
		return
	}
	if !s.collections.DeleteCollection(r.Context(), collection) {
		s.handleDomainError(w, fmt.Errorf("%w: %q", vectorstore.ErrCollectionNotFound, collection))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDocuments handles POST /collections/{collection}/documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request, collection string) {
	if !s.userCollection(w, collection) {
		return
	}
	var req AddDocumentsRequest
	if !s.decode(w, r, &req) {
		return
	}

	ids, err := s.collections.AddDocuments(r.Context(), collection, req.Documents, req.Embeddings, req.Metadatas)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddDocumentsResponse{IDs: ids})
}

// QueryCollection handles POST /collections/{collection}/query.
func (s *Server) QueryCollection(w http.ResponseWriter, r *http.Request, collection string, params QueryParams) {
	if !s.userCollection(w, collection) {
		return
	}
	var req QueryRequest
	if !s.decode(w, r, &req) {
		return
	}

	topK := 0
	if params.TopK != nil {
		topK = *params.TopK
	}
	res, err := s.collections.Query(r.Context(), collection, req.Embedding, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResultToAPI(res))
}

// GetSession handles GET /sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, _ *http.Request, session string) {
	writeJSON(w, http.StatusOK, indexStateToAPI(s.search.IndexState(session)))
}

// ResetSession handles DELETE /sessions/{session}.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request, session string) {
	if !s.search.ResetSession(r.Context(), session) {
		s.handleDomainError(w, fmt.Errorf("session %q: %w", session, domain.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams) {
	period, err := domusage.ParsePeriod(deref(params.Period))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToAPI(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    string(report.Status),
		Checks:    checks,
		Documents: report.Documents,
		Version:   version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// userCollection rejects names reserved for session indexes.
func (s *Server) userCollection(w http.ResponseWriter, name string) bool {
	if strings.HasPrefix(name, searchuc.SessionCollectionPrefix) {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("collection names starting with %q are reserved", searchuc.SessionCollectionPrefix))
		return false
	}
	return true
}

func (s *Server) documents(ctx context.Context, inline *[]DocumentInput) ([]domdoc.Document, error) {
	if inline != nil {
		return documentsFromAPI(*inline)
	}
	if s.corpus == nil {
		return nil, fmt.Errorf("%w: no corpus configured and no documents supplied", domain.ErrCorpusUnavailable)
	}
	docs, err := s.corpus.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return docs, nil
}

func (s *Server) searchRequestFromAPI(req SearchRequest) (request.Request, error) {
	prof, err := profileFromAPI(req.Profile, req.Weights)
	if err != nil {
		return request.Request{}, err
	}

	limit := s.limits.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit > s.limits.MaxLimit {
		limit = s.limits.MaxLimit
	}

	r, err := request.New(req.Query, prof, deref(req.Session), limit, deref(req.MinScore), deref(req.AIEnhance))
	if err != nil {
		return request.Request{}, fmt.Errorf("build search request: %w", err)
	}
	return r, nil
}

// profileFromAPI resolves the named profile. Weights alone imply a custom
// profile; neither means adaptive selection.
func profileFromAPI(name *string, w *Weights) (profile.Profile, error) {
	n := deref(name)
	if n == string(profile.Custom) || (n == "" && w != nil) {
		if w == nil {
			return profile.Profile{}, fmt.Errorf("%w: custom profile requires weights", domain.ErrInvalidWeights)
		}
		p, err := profile.NewCustom(profile.Weights{BM25: w.BM25, Vector: w.Vector, RRF: w.RRF})
		if err != nil {
			return profile.Profile{}, fmt.Errorf("custom profile: %w", err)
		}
		return p, nil
	}
	if n == "" {
		return profile.Profile{}, nil
	}
	p, err := profile.Parse(n)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

func documentsFromAPI(in []DocumentInput) ([]domdoc.Document, error) {
	docs := make([]domdoc.Document, len(in))
	for i, d := range in {
		var fields []domdoc.Field
		switch {
		case d.Fields != nil:
			fields = make([]domdoc.Field, len(*d.Fields))
			for j, f := range *d.Fields {
				fields[j] = domdoc.Field{Name: f.Name, Value: f.Value}
			}
		case d.Text != nil:
			fields = []domdoc.Field{{Name: "text", Value: *d.Text}}
		}
		doc, err := domdoc.New(d.ID, fields, d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs[i] = doc
	}
	return docs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the full message for client errors and a
// generic one for everything else.
func safeDomainMessage(err error) string {
	clientErrors := []error{
		domain.ErrUnknownProfile,
		domain.ErrInvalidWeights,
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		vectorstore.ErrLengthMismatch,
		vectorstore.ErrDimensionMismatch,
		vectorstore.ErrInvalidCollection,
		vectorstore.ErrCollectionNotFound,
		domain.ErrInvalidPeriod,
	}
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	if errors.Is(err, domain.ErrCorpusUnavailable) {
		return domain.ErrCorpusUnavailable.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func searchResultToAPI(r *result.Result) SearchResultItem {
	doc := r.Document()
	fields := make([]DocumentField, len(doc.Fields()))
	for i, f := range doc.Fields() {
		fields[i] = DocumentField{Name: f.Name, Value: f.Value}
	}
	return SearchResultItem{
		ID:         r.ID(),
		Position:   r.Position(),
		MatchScore: r.MatchScore(),
		Scores: ResultScores{
			BM25:   ChannelScore(r.BM25()),
			Vector: ChannelScore(r.Vector()),
			RRF:    ChannelScore(r.RRF()),
		},
		Fields:   fields,
		Metadata: doc.Metadata(),
	}
}

func metadataToAPI(m searchuc.Metadata) SearchMetadata {
	channels := make([]string, len(m.Channels))
	for i, c := range m.Channels {
		channels[i] = string(c)
	}
	return SearchMetadata{
		RawQuery:         m.RawQuery,
		CorrectedQuery:   m.CorrectedQuery,
		Tokens:           m.Tokens,
		Expanded:         m.Expanded,
		Corrections:      m.Corrections,
		AIEnhanced:       m.AIEnhanced,
		Profile:          m.Profile,
		Adaptive:         m.Adaptive,
		Weights:          weightsToAPI(m.Weights),
		Channels:         channels,
		TotalDocuments:   m.TotalDocuments,
		MatchedDocuments: m.MatchedDocuments,
		Reason:           m.Reason,
		Timings: Timings{
			NLPMs:     millis(m.Timings.NLP),
			IndexMs:   millis(m.Timings.Index),
			ScoringMs: millis(m.Timings.Scoring),
			TotalMs:   millis(m.Timings.Total),
		},
		Index: indexStateToAPI(m.Index),
	}
}

func indexStateToAPI(st searchuc.IndexState) IndexState {
	out := IndexState{
		Indexed:            st.Indexed,
		IndexingInProgress: st.IndexingInProgress,
		DocumentCount:      st.DocumentCount,
		VectorCount:        st.VectorCount,
	}
	if !st.LastIndexTime.IsZero() {
		t := st.LastIndexTime.UTC()
		out.LastIndexTime = &t
	}
	return out
}

func weightsToAPI(w profile.Weights) Weights {
	return Weights{BM25: w.BM25, Vector: w.Vector, RRF: w.RRF}
}

func collectionToAPI(st vectorstore.Stats) Collection {
	return Collection{
		Name:      st.Name,
		Count:     st.Count,
		Dimension: st.Dimension,
		CreatedAt: st.CreatedAt.UTC(),
		UpdatedAt: st.UpdatedAt.UTC(),
	}
}

func queryResultToAPI(res vectorstore.QueryResult) QueryResponse {
	out := QueryResponse{
		IDs:       res.IDs,
		Documents: res.Documents,
		Metadatas: res.Metadatas,
		Distances: res.Distances,
	}
	if out.IDs == nil {
		out.IDs = []string{}
		out.Documents = []string{}
		out.Metadatas = []map[string]string{}
		out.Distances = []float64{}
	}
	return out
}

func usageToAPI(r *domusage.Report) UsageResponse {
	b := r.Budget()
	return UsageResponse{
		Period:      string(r.Period()),
		PeriodStart: r.Start().Format(time.RFC3339),
		PeriodEnd:   r.End().Format(time.RFC3339),
		Provider:    r.Provider(),
		Tokens:      r.Tokens(),
		Budget: UsageBudget{
			TokensLimit:     b.Limit(),
			TokensRemaining: b.Remaining(),
			IsExhausted:     b.Exhausted(),
			ResetsAt:        r.End().Format(time.RFC3339),
		},
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

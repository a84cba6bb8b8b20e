package chi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/corpus"
	domdoc "github.com/kailas-cloud/ideadex/internal/domain/document"
	"github.com/kailas-cloud/ideadex/internal/embedding/local"
	"github.com/kailas-cloud/ideadex/internal/nlp"
	embeddinguc "github.com/kailas-cloud/ideadex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ideadex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ideadex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ideadex/internal/usecase/usage"
	"github.com/kailas-cloud/ideadex/internal/vectorstore"
)

type testEnv struct {
	handler http.Handler
	store   *vectorstore.Store
}

func sampleDocs(t *testing.T) []domdoc.Document {
	t.Helper()
	texts := []string{"cloud database monitoring", "banking fintech payment", "healthcare patient monitoring"}
	docs := make([]domdoc.Document, len(texts))
	for i, text := range texts {
		d, err := domdoc.FromText("doc"+string(rune('1'+i)), text, map[string]string{"business_group": "bg"})
		if err != nil {
			t.Fatalf("FromText: %v", err)
		}
		docs[i] = d
	}
	return docs
}

func newTestEnv(t *testing.T, src Corpus) testEnv {
	t.Helper()
	store := vectorstore.New()
	svc, err := searchuc.New(nlp.NewProcessor(nlp.DefaultDictionary()), store, local.NewEmbedder(64), searchuc.Config{})
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	t.Cleanup(svc.Close)

	var healthCorpus healthuc.CorpusSource
	if src != nil {
		healthCorpus = src
	}
	server := NewServer(svc, store, src, healthuc.New(nil, local.NewEmbedder(64), healthCorpus), Limits{}, nil)
	return testEnv{
		handler: HandlerWithOptions(server, ChiServerOptions{BaseRouter: chi.NewRouter()}),
		store:   store,
	}
}

func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	resp := decodeBody[ErrorResponse](t, rr)
	if resp.Code != code {
		t.Errorf("error code: got %s, want %s", resp.Code, code)
	}
}

func withCorpus(t *testing.T) testEnv {
	t.Helper()
	return newTestEnv(t, corpus.NewStatic(sampleDocs(t)))
}

// --- search ---

func TestSearch_DefaultCorpus(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "clodus monitoring"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	resp := decodeBody[SearchResponse](t, rr)

	if resp.Metadata.CorrectedQuery != "cloud monitoring" {
		t.Errorf("corrected query: got %q", resp.Metadata.CorrectedQuery)
	}
	if resp.Metadata.TotalDocuments != 3 {
		t.Errorf("total documents: got %d", resp.Metadata.TotalDocuments)
	}
	if len(resp.Items) == 0 || resp.Items[0].ID != "doc1" {
		t.Fatalf("expected doc1 first, got %+v", resp.Items)
	}
	if resp.Items[0].Metadata["business_group"] != "bg" {
		t.Errorf("expected metadata on result, got %v", resp.Items[0].Metadata)
	}
	if len(resp.Items[0].Fields) != 1 || resp.Items[0].Fields[0].Value != "cloud database monitoring" {
		t.Errorf("unexpected fields %+v", resp.Items[0].Fields)
	}
	if !resp.Metadata.Index.Indexed {
		t.Errorf("expected indexed session, got %+v", resp.Metadata.Index)
	}
}

func TestSearch_InlineDocuments(t *testing.T) {
	env := newTestEnv(t, nil)

	text := "kubernetes cluster autoscaling"
	body := SearchRequest{
		Query: "kubernates",
		Documents: &[]DocumentInput{
			{ID: "a", Text: &text},
			{ID: "b", Fields: &[]DocumentField{{Name: "title", Value: "retail loyalty"}}},
		},
	}
	rr := env.do(t, http.MethodPost, "/search", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[SearchResponse](t, rr)
	if len(resp.Items) == 0 || resp.Items[0].ID != "a" {
		t.Errorf("expected a first, got %+v", resp.Items)
	}
	if resp.Metadata.Profile != "keyword" || !resp.Metadata.Adaptive {
		t.Errorf("expected adaptive keyword profile, got %q", resp.Metadata.Profile)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "  "})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeBody[SearchResponse](t, rr)
	if len(resp.Items) != 0 || resp.Metadata.Reason != searchuc.ReasonEmptyQuery {
		t.Errorf("expected empty query reason, got %q with %d items", resp.Metadata.Reason, len(resp.Items))
	}
	if resp.Items == nil {
		t.Error("expected items to encode as an empty array")
	}
}

func TestSearch_Profiles(t *testing.T) {
	env := withCorpus(t)

	semantic := "semantic"
	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "cloud", Profile: &semantic})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if resp := decodeBody[SearchResponse](t, rr); resp.Metadata.Profile != "semantic" || resp.Metadata.Adaptive {
		t.Errorf("expected explicit semantic, got %q", resp.Metadata.Profile)
	}

	rr = env.do(t, http.MethodPost, "/search", SearchRequest{Query: "cloud", Weights: &Weights{BM25: 2, Vector: 1, RRF: 1}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeBody[SearchResponse](t, rr)
	if resp.Metadata.Profile != "custom" || resp.Metadata.Weights.BM25 != 0.5 {
		t.Errorf("expected normalized custom weights, got %q %+v", resp.Metadata.Profile, resp.Metadata.Weights)
	}
}

func TestSearch_Errors(t *testing.T) {
	env := withCorpus(t)
	unknown, custom := "fuzzy", "custom"
	tooHigh := 101

	tests := []struct {
		name   string
		body   any
		status int
		code   ErrorCode
	}{
		{"bad json", "{", http.StatusBadRequest, ErrorCodeBadRequest},
		{"unknown profile", SearchRequest{Query: "x", Profile: &unknown}, http.StatusBadRequest, ErrorCodeUnknownProfile},
		{"custom without weights", SearchRequest{Query: "x", Profile: &custom}, http.StatusBadRequest, ErrorCodeInvalidWeights},
		{"negative weights", SearchRequest{Query: "x", Weights: &Weights{BM25: -1, Vector: 1}}, http.StatusBadRequest, ErrorCodeInvalidWeights},
		{"min score", SearchRequest{Query: "x", MinScore: &tooHigh}, http.StatusBadRequest, ErrorCodeValidationFailed},
		{"document without id", SearchRequest{Query: "x", Documents: &[]DocumentInput{{}}}, http.StatusBadRequest, ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, "/search", tt.body), tt.status, tt.code)
		})
	}
}

func TestSearch_NoCorpus(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "cloud"})
	expectError(t, rr, http.StatusServiceUnavailable, ErrorCodeCorpusUnavailable)
}

func TestSearch_LimitClamped(t *testing.T) {
	env := withCorpus(t)
	one := 1

	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "monitoring", Limit: &one})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeBody[SearchResponse](t, rr)
	if len(resp.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.Metadata.MatchedDocuments < 2 {
		t.Errorf("expected at least 2 matches, got %d", resp.Metadata.MatchedDocuments)
	}
}

func TestListProfiles(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodGet, "/profiles", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeBody[ProfileListResponse](t, rr)
	want := []string{"balanced", "keyword", "semantic", "consensus"}
	if len(resp.Items) != len(want) {
		t.Fatalf("expected %d profiles, got %d", len(want), len(resp.Items))
	}
	for i, p := range resp.Items {
		if p.Name != want[i] {
			t.Errorf("profile %d: got %q, want %q", i, p.Name, want[i])
		}
		if sum := p.Weights.BM25 + p.Weights.Vector + p.Weights.RRF; sum < 0.999999 || sum > 1.000001 {
			t.Errorf("profile %s: weights sum to %f", p.Name, sum)
		}
	}
}

// --- sessions ---

func TestSessions_StateAndReset(t *testing.T) {
	env := withCorpus(t)
	session := "analyst-7"

	rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "cloud", Session: &session})
	if rr.Code != http.StatusOK {
		t.Fatalf("search status: got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/sessions/"+session, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get session status: got %d", rr.Code)
	}
	st := decodeBody[IndexState](t, rr)
	if !st.Indexed || st.DocumentCount != 3 || st.LastIndexTime == nil {
		t.Errorf("unexpected state %+v", st)
	}

	if rr = env.do(t, http.MethodDelete, "/sessions/"+session, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("reset status: got %d", rr.Code)
	}
	expectError(t, env.do(t, http.MethodDelete, "/sessions/"+session, nil), http.StatusNotFound, ErrorCodeSessionNotFound)
}

// --- collections ---

func TestCollections_Lifecycle(t *testing.T) {
	env := withCorpus(t)

	if rr := env.do(t, http.MethodPut, "/collections/notes", nil); rr.Code != http.StatusCreated {
		t.Fatalf("create status: got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPut, "/collections/notes", nil); rr.Code != http.StatusOK {
		t.Fatalf("repeat create status: got %d", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/collections/notes/documents", AddDocumentsRequest{
		Documents:  []string{"a", "b"},
		Embeddings: [][]float32{{1, 0}, {0, 1}},
		Metadatas:  []map[string]string{{"k": "a"}, {"k": "b"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status: got %d, body %s", rr.Code, rr.Body.String())
	}
	if added := decodeBody[AddDocumentsResponse](t, rr); len(added.IDs) != 2 || !strings.HasPrefix(added.IDs[0], "notes_0_") {
		t.Errorf("unexpected ids %v", added.IDs)
	}

	rr = env.do(t, http.MethodPost, "/collections/notes/query?top_k=1", QueryRequest{Embedding: []float32{0, 1}})
	if rr.Code != http.StatusOK {
		t.Fatalf("query status: got %d, body %s", rr.Code, rr.Body.String())
	}
	q := decodeBody[QueryResponse](t, rr)
	if len(q.Documents) != 1 || q.Documents[0] != "b" || q.Distances[0] > 1e-6 {
		t.Errorf("unexpected query result %+v", q)
	}

	rr = env.do(t, http.MethodGet, "/collections/notes", nil)
	if c := decodeBody[Collection](t, rr); c.Count != 2 || c.Dimension != 2 {
		t.Errorf("unexpected collection %+v", c)
	}

	if rr = env.do(t, http.MethodDelete, "/collections/notes", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status: got %d", rr.Code)
	}
	expectError(t, env.do(t, http.MethodGet, "/collections/notes", nil), http.StatusNotFound, ErrorCodeCollectionNotFound)
	expectError(t, env.do(t, http.MethodDelete, "/collections/notes", nil), http.StatusNotFound, ErrorCodeCollectionNotFound)
}

func TestCollections_LengthMismatch(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodPost, "/collections/c/documents", AddDocumentsRequest{
		Documents:  []string{"a", "b"},
		Embeddings: [][]float32{{1, 0}},
	})
	expectError(t, rr, http.StatusBadRequest, ErrorCodeLengthMismatch)
}

func TestCollections_QueryEdgeCases(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodPost, "/collections/missing/query", QueryRequest{Embedding: []float32{1, 0}})
	if rr.Code != http.StatusOK {
		t.Fatalf("missing collection query status: got %d", rr.Code)
	}
	if q := decodeBody[QueryResponse](t, rr); q.IDs == nil || len(q.IDs) != 0 {
		t.Errorf("expected empty arrays, got %+v", q)
	}

	rr = env.do(t, http.MethodPost, "/collections/missing/query?top_k=abc", QueryRequest{Embedding: []float32{1}})
	expectError(t, rr, http.StatusBadRequest, ErrorCodeBadRequest)

	env.do(t, http.MethodPost, "/collections/c/documents", AddDocumentsRequest{
		Documents: []string{"a"}, Embeddings: [][]float32{{1, 0}},
	})
	rr = env.do(t, http.MethodPost, "/collections/c/query", QueryRequest{Embedding: []float32{1, 0, 0}})
	expectError(t, rr, http.StatusBadRequest, ErrorCodeDimensionMismatch)
}

func TestCollections_HidesSessions(t *testing.T) {
	env := withCorpus(t)

	if rr := env.do(t, http.MethodPost, "/search", SearchRequest{Query: "cloud"}); rr.Code != http.StatusOK {
		t.Fatalf("search status: got %d", rr.Code)
	}
	env.do(t, http.MethodPut, "/collections/notes", nil)

	resp := decodeBody[CollectionListResponse](t, env.do(t, http.MethodGet, "/collections", nil))
	if len(resp.Items) != 1 || resp.Items[0].Name != "notes" {
		t.Errorf("expected only notes, got %+v", resp.Items)
	}
	if len(env.store.List(t.Context())) != 2 {
		t.Error("expected the session index to exist in the store")
	}

	expectError(t, env.do(t, http.MethodGet, "/collections/session:default", nil),
		http.StatusBadRequest, ErrorCodeValidationFailed)
}

// --- usage ---

func TestUsage_Unlimited(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodGet, "/usage", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body %s)", rr.Code, rr.Body.String())
	}
	resp := decodeBody[UsageResponse](t, rr)
	if resp.Period != "day" {
		t.Errorf("period: got %q, want day", resp.Period)
	}
	if resp.Budget.TokensRemaining != -1 || resp.Budget.IsExhausted {
		t.Errorf("unexpected budget %+v", resp.Budget)
	}
}

func TestUsage_BudgetTracker(t *testing.T) {
	store := vectorstore.New()
	svc, err := searchuc.New(nlp.NewProcessor(nlp.DefaultDictionary()), store, nil, searchuc.Config{})
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	t.Cleanup(svc.Close)

	tracker := embeddinguc.NewBudgetTracker("openai", 0, 1000, embeddinguc.BudgetActionReject, zap.NewNop())
	tracker.Record(1000)
	server := NewServer(svc, store, nil, healthuc.New(nil, nil, nil), Limits{}, nil).
		WithUsage(usageuc.New(tracker))
	env := testEnv{handler: HandlerWithOptions(server, ChiServerOptions{BaseRouter: chi.NewRouter()}), store: store}

	resp := decodeBody[UsageResponse](t, env.do(t, http.MethodGet, "/usage?period=month", nil))
	if resp.Provider != "openai" || resp.Tokens != 1000 {
		t.Errorf("unexpected usage %+v", resp)
	}
	if resp.Budget.TokensLimit != 1000 || resp.Budget.TokensRemaining != 0 || !resp.Budget.IsExhausted {
		t.Errorf("unexpected budget %+v", resp.Budget)
	}
	if resp.Budget.ResetsAt != resp.PeriodEnd {
		t.Errorf("resets_at %q should equal period_end %q", resp.Budget.ResetsAt, resp.PeriodEnd)
	}
}

func TestUsage_InvalidPeriod(t *testing.T) {
	env := withCorpus(t)

	expectError(t, env.do(t, http.MethodGet, "/usage?period=year", nil), http.StatusBadRequest, ErrorCodeInvalidPeriod)
}

// --- health & metrics ---

func TestHealthCheck(t *testing.T) {
	env := withCorpus(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	resp := decodeBody[HealthResponse](t, rr)
	if resp.Status != string(healthuc.Healthy) || resp.Documents != 3 || resp.Version == "" {
		t.Errorf("unexpected health %+v", resp)
	}
	if resp.Checks[healthuc.ComponentEmbedding] != string(healthuc.CheckOK) {
		t.Errorf("unexpected checks %v", resp.Checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := withCorpus(t)

	if rr := env.do(t, http.MethodGet, "/metrics", nil); rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
}

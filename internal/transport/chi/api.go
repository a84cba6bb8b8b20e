package chi

import "time"

// ErrorCode is a machine-readable error classifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeUnknownProfile     ErrorCode = "unknown_profile"
	ErrorCodeInvalidWeights     ErrorCode = "invalid_weights"
	ErrorCodeLengthMismatch     ErrorCode = "length_mismatch"
	ErrorCodeDimensionMismatch  ErrorCode = "dimension_mismatch"
	ErrorCodeCollectionNotFound ErrorCode = "collection_not_found"
	ErrorCodeSessionNotFound    ErrorCode = "session_not_found"
	ErrorCodeCorpusUnavailable  ErrorCode = "corpus_unavailable"
	ErrorCodeInvalidPeriod      ErrorCode = "invalid_period"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Weights is a fusion triple.
type Weights struct {
	BM25   float64 `json:"bm25"`
	Vector float64 `json:"vector"`
	RRF    float64 `json:"rrf"`
}

// DocumentField is one searchable text field.
type DocumentField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DocumentInput is a caller-supplied document. Text is shorthand for a
// single "text" field and is ignored when Fields is set.
type DocumentInput struct {
	ID       string            `json:"id"`
	Text     *string           `json:"text,omitempty"`
	Fields   *[]DocumentField  `json:"fields,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchRequest is the body of POST /search. Without documents the
// configured corpus is searched.
type SearchRequest struct {
	Query     string           `json:"query"`
	Profile   *string          `json:"profile,omitempty"`
	Weights   *Weights         `json:"weights,omitempty"`
	Session   *string          `json:"session,omitempty"`
	Limit     *int             `json:"limit,omitempty"`
	MinScore  *int             `json:"min_score,omitempty"`
	AIEnhance *bool            `json:"ai_enhance,omitempty"`
	Documents *[]DocumentInput `json:"documents,omitempty"`
}

// ChannelScore is a raw score and its normalized value.
type ChannelScore struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
}

// ResultScores groups per-channel scores.
type ResultScores struct {
	BM25   ChannelScore `json:"bm25"`
	Vector ChannelScore `json:"vector"`
	RRF    ChannelScore `json:"rrf"`
}

// SearchResultItem is one ranked document.
type SearchResultItem struct {
	ID         string            `json:"id"`
	Position   int               `json:"position"`
	MatchScore int               `json:"match_score"`
	Scores     ResultScores      `json:"scores"`
	Fields     []DocumentField   `json:"fields"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Timings are stage durations in milliseconds.
type Timings struct {
	NLPMs     float64 `json:"nlp_ms"`
	IndexMs   float64 `json:"index_ms"`
	ScoringMs float64 `json:"scoring_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// IndexState describes a session vector index.
type IndexState struct {
	Indexed            bool       `json:"indexed"`
	IndexingInProgress bool       `json:"indexing_in_progress"`
	LastIndexTime      *time.Time `json:"last_index_time,omitempty"`
	DocumentCount      int        `json:"document_count"`
	VectorCount        int        `json:"vector_count"`
}

// SearchMetadata explains a ranking.
type SearchMetadata struct {
	RawQuery         string            `json:"raw_query"`
	CorrectedQuery   string            `json:"corrected_query"`
	Tokens           []string          `json:"tokens"`
	Expanded         []string          `json:"expanded"`
	Corrections      map[string]string `json:"corrections,omitempty"`
	AIEnhanced       bool              `json:"ai_enhanced"`
	Profile          string            `json:"profile"`
	Adaptive         bool              `json:"adaptive"`
	Weights          Weights           `json:"weights"`
	Channels         []string          `json:"channels"`
	TotalDocuments   int               `json:"total_documents"`
	MatchedDocuments int               `json:"matched_documents"`
	Reason           string            `json:"reason,omitempty"`
	Timings          Timings           `json:"timings"`
	Index            IndexState        `json:"index"`
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	Items    []SearchResultItem `json:"items"`
	Metadata SearchMetadata     `json:"metadata"`
}

// Profile is a named weight profile.
type Profile struct {
	Name    string  `json:"name"`
	Weights Weights `json:"weights"`
}

// ProfileListResponse is the body of GET /profiles.
type ProfileListResponse struct {
	Items []Profile `json:"items"`
}

// Collection describes a vector store collection.
type Collection struct {
	Name      string    `json:"name"`
	Count     int       `json:"count"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionListResponse is the body of GET /collections.
type CollectionListResponse struct {
	Items []Collection `json:"items"`
}

// AddDocumentsRequest carries index-aligned documents, embeddings and metadatas.
type AddDocumentsRequest struct {
	Documents  []string            `json:"documents"`
	Embeddings [][]float32         `json:"embeddings"`
	Metadatas  []map[string]string `json:"metadatas,omitempty"`
}

// AddDocumentsResponse lists generated ids.
type AddDocumentsResponse struct {
	IDs []string `json:"ids"`
}

// QueryRequest is the body of POST /collections/{collection}/query.
type QueryRequest struct {
	Embedding []float32 `json:"embedding"`
}

// QueryParams are the query-string parameters of a collection query.
type QueryParams struct {
	TopK *int `form:"top_k" json:"top_k,omitempty"`
}

// QueryResponse holds index-aligned nearest neighbours.
type QueryResponse struct {
	IDs       []string            `json:"ids"`
	Documents []string            `json:"documents"`
	Metadatas []map[string]string `json:"metadatas"`
	Distances []float64           `json:"distances"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Documents int               `json:"documents"`
	Version   string            `json:"version"`
}

// UsageParams are the query-string parameters of GET /usage.
type UsageParams struct {
	Period *string `form:"period" json:"period,omitempty"`
}

// UsageBudget is the token cap of the reported window. Remaining is -1 when unlimited.
type UsageBudget struct {
	TokensLimit     int64  `json:"tokens_limit"`
	TokensRemaining int64  `json:"tokens_remaining"`
	IsExhausted     bool   `json:"is_exhausted"`
	ResetsAt        string `json:"resets_at"`
}

// UsageResponse is the body of GET /usage.
type UsageResponse struct {
	Period      string      `json:"period"`
	PeriodStart string      `json:"period_start"`
	PeriodEnd   string      `json:"period_end"`
	Provider    string      `json:"provider,omitempty"`
	Tokens      int64       `json:"tokens"`
	Budget      UsageBudget `json:"budget"`
}

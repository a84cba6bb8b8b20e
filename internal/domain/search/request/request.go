package request

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/domain/search/profile"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in runes.
	MaxQueryLength = 4096
	DefaultLimit   = 20
	MaxLimit       = 100
	// DefaultSession keys the vector index when the caller names no session.
	DefaultSession = "default"
	MaxSessionLen  = 128
)

// Request is a validated search query. An empty query is valid: the search
// answers it with an empty ranking rather than an error.
type Request struct {
	query     string
	profile   profile.Profile
	session   string
	limit     int
	minScore  int
	aiEnhance bool
}

// New validates and normalizes search parameters.
// A zero profile means "select adaptively from the query length".
// Defaults: session=default, limit=20; minScore is on the 0-100 match scale.
func New(
	query string,
	prof profile.Profile,
	session string,
	limit, minScore int,
	aiEnhance bool,
) (Request, error) {
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if session == "" {
		session = DefaultSession
	}
	if len(session) > MaxSessionLen {
		return Request{}, fmt.Errorf("%w: session key too long (max %d)", domain.ErrInvalidRequest, MaxSessionLen)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if minScore < 0 || minScore > 100 {
		return Request{}, fmt.Errorf("%w: min_score must be between 0 and 100", domain.ErrInvalidRequest)
	}

	return Request{
		query:     query,
		profile:   prof,
		session:   session,
		limit:     limit,
		minScore:  minScore,
		aiEnhance: aiEnhance,
	}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Profile returns the requested weight profile (zero = adaptive).
func (r *Request) Profile() profile.Profile { return r.profile }

// Session returns the key the vector index is scoped to.
func (r *Request) Session() string { return r.session }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// MinScore returns the minimum composite match score.
func (r *Request) MinScore() int { return r.minScore }

// AIEnhance reports whether the text oracle may refine the query.
func (r *Request) AIEnhance() bool { return r.aiEnhance }

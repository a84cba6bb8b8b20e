package result

import (
	"github.com/kailas-cloud/ideadex/internal/domain/document"
)

// MaxMatchScore is the top of the composite score scale.
const MaxMatchScore = 100

// Channel is one scoring signal.
type Channel string

// Scoring channels.
const (
	ChannelBM25   Channel = "bm25"
	ChannelVector Channel = "vector"
	ChannelRRF    Channel = "rrf"
)

// Score is a raw channel score and its min-max normalized value in [0,1].
type Score struct {
	Raw        float64
	Normalized float64
}

// Result is a document annotated with per-channel scores and the composite match score.
type Result struct {
	doc        document.Document
	position   int
	bm25       Score
	vector     Score
	rrf        Score
	matchScore int
}

// New creates a scored result. position is the document's index in the corpus.
func New(doc document.Document, position int, bm25, vector, rrf Score, matchScore int) Result {
	return Result{
		doc: doc, position: position,
		bm25: bm25, vector: vector, rrf: rrf,
		matchScore: matchScore,
	}
}

// Document returns the ranked document.
func (r *Result) Document() document.Document { return r.doc }

// ID returns the document identifier.
func (r *Result) ID() string { return r.doc.ID() }

// Position returns the document's original corpus index.
func (r *Result) Position() int { return r.position }

// BM25 returns the lexical score.
func (r *Result) BM25() Score { return r.bm25 }

// Vector returns the semantic score.
func (r *Result) Vector() Score { return r.vector }

// RRF returns the rank-fusion score.
func (r *Result) RRF() Score { return r.rrf }

// MatchScore returns the composite score on the 0-100 scale.
func (r *Result) MatchScore() int { return r.matchScore }

// Package nlp normalizes free-text search queries: tokenization, spell
// correction against a domain dictionary, synonym expansion and optional
// enhancement by a text-generation oracle.
package nlp

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/logger"
)

const (
	// DefaultMaxPromptChars bounds the query text sent to the oracle.
	DefaultMaxPromptChars = 2000
	// DefaultOracleTimeout bounds a single oracle call.
	DefaultOracleTimeout = 10 * time.Second
)

// Query is the processed form of a raw query string.
type Query struct {
	Raw        string
	Corrected  string
	Tokens     []string
	Expanded   []string
	AIEnhanced bool
	// Corrections maps original tokens to their replacement.
	Corrections map[string]string
}

// IsEmpty reports whether the query carries no searchable terms.
func (q Query) IsEmpty() bool { return len(q.Tokens) == 0 }

// EnhanceOptions tunes one Enhance call.
type EnhanceOptions struct {
	// Vocabulary holds corpus terms that must never be "corrected".
	Vocabulary []string
	// UseOracle asks the configured oracle to refine the query.
	UseOracle bool
}

// Processor is safe for concurrent use.
type Processor struct {
	corrector *corrector
	expander  *expander

	oracle         domain.TextGenerator
	oracleTimeout  time.Duration
	maxPromptChars int
}

// Option configures a Processor.
type Option func(*Processor)

// WithOracle enables oracle enhancement.
func WithOracle(g domain.TextGenerator) Option {
	return func(p *Processor) { p.oracle = g }
}

// WithOracleTimeout overrides DefaultOracleTimeout.
func WithOracleTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.oracleTimeout = d
		}
	}
}

// WithMaxPromptChars overrides DefaultMaxPromptChars.
func WithMaxPromptChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxPromptChars = n
		}
	}
}

// NewProcessor builds a processor over dict.
func NewProcessor(dict Dictionary, opts ...Option) *Processor {
	p := &Processor{
		corrector:      newCorrector(dict),
		expander:       newExpander(dict),
		oracleTimeout:  DefaultOracleTimeout,
		maxPromptChars: DefaultMaxPromptChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasOracle reports whether an oracle is configured.
func (p *Processor) HasOracle() bool { return p.oracle != nil }

// Enhance processes raw. It never fails: oracle problems fall back to the
// rule-based result.
func (p *Processor) Enhance(ctx context.Context, raw string, opts EnhanceOptions) Query {
	q := Query{
		Raw:         raw,
		Tokens:      []string{},
		Expanded:    []string{},
		Corrections: map[string]string{},
	}

	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return q
	}

	extra := make(map[string]struct{}, len(opts.Vocabulary))
	for _, v := range opts.Vocabulary {
		extra[v] = struct{}{}
	}

	corrected := make([]string, len(tokens))
	for i, t := range tokens {
		fix, changed := p.corrector.correct(t, extra)
		if changed {
			q.Corrections[t] = fix
		}
		corrected[i] = fix
	}

	q.Tokens = corrected
	q.Corrected = strings.Join(corrected, " ")
	q.Expanded = p.expander.expand(corrected)

	if len(q.Corrections) > 0 {
		logger.FromContext(ctx).Debug("query corrected",
			zap.String("raw", raw),
			zap.String("corrected", q.Corrected),
		)
	}

	if opts.UseOracle && p.oracle != nil {
		return p.enhanceWithOracle(ctx, q)
	}
	return q
}

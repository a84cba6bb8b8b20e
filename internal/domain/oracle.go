package domain

import "context"

// GenerateOptions tunes a single text-generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
	// JSON asks the oracle to answer with a JSON object only.
	JSON bool
}

// TextGenerator is the optional language-model oracle used for query
// enhancement. Callers must treat every call as best-effort.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

package usage

import embeddinguc "github.com/kailas-cloud/ideadex/internal/usecase/embedding"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Provider() string
	Limit(p embeddinguc.Period) int64
	Used(p embeddinguc.Period) int64
	Remaining(p embeddinguc.Period) int64
}

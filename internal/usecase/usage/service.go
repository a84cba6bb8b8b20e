package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/ideadex/internal/domain/usage"
	embeddinguc "github.com/kailas-cloud/ideadex/internal/usecase/embedding"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())
	if s.br == nil {
		return domusage.NewReport(period, start, end, "", 0, domusage.NewBudget(0, 0))
	}

	window := embeddinguc.PeriodDaily
	if period == domusage.PeriodMonth {
		window = embeddinguc.PeriodMonthly
	}
	b := domusage.NewBudget(s.br.Limit(window), s.br.Remaining(window))
	return domusage.NewReport(period, start, end, s.br.Provider(), s.br.Used(window), b)
}

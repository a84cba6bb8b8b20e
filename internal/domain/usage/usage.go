package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/ideadex/internal/domain"
)

// Period is the reporting window of embedding token usage.
type Period string

// Reporting window constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps an API value to a Period. Empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("period %q: %w", s, domain.ErrInvalidPeriod)
	}
}

// Bounds returns the UTC window containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Budget is a snapshot of the token cap for one window.
// A zero limit means the window is unlimited and remaining is -1.
type Budget struct {
	limit     int64
	remaining int64
}

// NewBudget creates a Budget snapshot.
func NewBudget(limit, remaining int64) Budget {
	if limit <= 0 {
		return Budget{remaining: -1}
	}
	return Budget{limit: limit, remaining: max(remaining, 0)}
}

// Limit returns the token cap.
func (b Budget) Limit() int64 { return b.limit }

// Remaining returns tokens left, -1 when unlimited.
func (b Budget) Remaining() int64 { return b.remaining }

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.limit == 0 }

// Exhausted reports whether the cap is spent.
func (b Budget) Exhausted() bool { return b.limit > 0 && b.remaining == 0 }

// Report is the embedding token usage of one provider for one window.
type Report struct {
	period   Period
	start    time.Time
	end      time.Time
	provider string
	tokens   int64
	budget   Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end time.Time, provider string, tokens int64, b Budget) Report {
	return Report{
		period:   period,
		start:    start,
		end:      end,
		provider: provider,
		tokens:   tokens,
		budget:   b,
	}
}

// Period returns the reporting window.
func (r *Report) Period() Period { return r.period }

// Start returns the window start.
func (r *Report) Start() time.Time { return r.start }

// End returns the window end, which is also when the budget resets.
func (r *Report) End() time.Time { return r.end }

// Provider returns the embedding provider name.
func (r *Report) Provider() string { return r.provider }

// Tokens returns tokens consumed in the window.
func (r *Report) Tokens() int64 { return r.tokens }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }

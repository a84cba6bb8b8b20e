package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ideadex/internal/domain"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// Period is a budget accounting window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// BudgetStore persists budget counters. IncrBy may be called repeatedly.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

type window struct {
	period Period
	limit  int64
	used   int64
	start  time.Time
}

func (w *window) truncate(t time.Time) time.Time {
	if w.period == PeriodMonthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *window) stamp(t time.Time) string {
	if w.period == PeriodMonthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

// BudgetTracker caps provider tokens per day and per month.
// Check is in-memory only; Record writes behind to the store when one is attached.
type BudgetTracker struct {
	mu       sync.Mutex
	windows  []*window
	action   BudgetAction
	provider string
	store    BudgetStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewBudgetTracker creates a tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BudgetTracker{
		windows: []*window{
			{period: PeriodDaily, limit: dailyLimit},
			{period: PeriodMonthly, limit: monthlyLimit},
		},
		action:   action,
		provider: provider,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	b.roll()
	return b
}

// WithClock replaces the time source. Intended for tests.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	for _, w := range b.windows {
		w.start = time.Time{}
	}
	b.roll()
	return b
}

// WithStore attaches a persistence store and loads the current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows {
		val, err := store.Get(ctx, b.key(w, now))
		if err != nil {
			b.logger.Warn("Failed to load budget from store",
				zap.String("period", string(w.period)), zap.Error(err))
			continue
		}
		w.used = val
	}
	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.windows[0].used),
		zap.Int64("monthly_used", b.windows[1].used),
	)
	return b
}

func (b *BudgetTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.period, w.stamp(t))
}

// Check verifies the budget allows a new request.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	for _, w := range b.windows {
		if !w.exceeded() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%s budget of %d tokens: %w", w.period, w.limit, domain.ErrEmbeddingQuotaExceeded)
		}
		b.logger.Warn("Token budget exceeded",
			zap.String("provider", b.provider),
			zap.String("period", string(w.period)),
			zap.Int64("used", w.used),
			zap.Int64("limit", w.limit),
		)
	}
	return nil
}

// Record registers consumed tokens after a request.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.roll()
	now := b.now()
	keys := make([]string, 0, len(b.windows))
	for _, w := range b.windows {
		w.used += tokens
		keys = append(keys, b.key(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// store writes must not block on the caller's context
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Remaining returns tokens left in the period (-1 if unlimited).
func (b *BudgetTracker) Remaining(p Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	for _, w := range b.windows {
		if w.period != p {
			continue
		}
		if w.limit == 0 {
			return -1
		}
		return max(w.limit-w.used, 0)
	}
	return -1
}

// Limit returns the configured cap for the period, 0 if unlimited.
func (b *BudgetTracker) Limit(p Period) int64 {
	for _, w := range b.windows {
		if w.period == p {
			return w.limit
		}
	}
	return 0
}

// Provider returns the provider the tracker counts tokens for.
func (b *BudgetTracker) Provider() string { return b.provider }

// Used returns tokens consumed in the current period.
func (b *BudgetTracker) Used(p Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()

	for _, w := range b.windows {
		if w.period == p {
			return w.used
		}
	}
	return 0
}

// roll zeroes counters whose window has passed. Caller holds mu.
func (b *BudgetTracker) roll() {
	now := b.now()
	for _, w := range b.windows {
		if start := w.truncate(now); start.After(w.start) {
			if !w.start.IsZero() {
				w.used = 0
			}
			w.start = start
		}
	}
}

// Package budget persists embedding token counters in the key-value store.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/ideadex/internal/db"
)

// Default retention of counters, long enough to outlive their window.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// Store keeps one counter per budget window. Keys end in "{period}:{stamp}".
type Store struct {
	counters db.Counters
	ttls     map[string]time.Duration
}

// New creates a budget store. Zero TTLs fall back to the defaults.
func New(c db.Counters, dailyTTL, monthlyTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthlyTTL <= 0 {
		monthlyTTL = DefaultMonthlyTTL
	}
	return &Store{
		counters: c,
		ttls:     map[string]time.Duration{"daily": dailyTTL, "monthly": monthlyTTL},
	}
}

// IncrBy adds tokens to the window counter. Its expiry is fixed on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.counters.IncrWithExpiry(ctx, key, val, s.ttlFor(key)); err != nil {
		return fmt.Errorf("budget incr: %w", err)
	}
	return nil
}

// Get returns the window counter, 0 for a window with no usage yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.counters.Counter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("budget get: %w", err)
	}
	return val, nil
}

// ttlFor picks the TTL from the period segment preceding the stamp.
func (s *Store) ttlFor(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		if ttl, ok := s.ttls[parts[len(parts)-2]]; ok {
			return ttl
		}
	}
	return s.ttls["monthly"]
}

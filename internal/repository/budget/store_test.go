package budget

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCounters struct {
	vals map[string]int64
	ttls map[string]time.Duration
	err  error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{vals: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounters) Counter(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.vals[key], nil
}

func (f *fakeCounters) IncrWithExpiry(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.vals[key] += delta
	if _, ok := f.ttls[key]; !ok {
		f.ttls[key] = ttl
	}
	return f.vals[key], nil
}

func TestStore_IncrBySetsPeriodTTL(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, time.Hour, 10*time.Hour)
	ctx := context.Background()

	daily := "ideadex:budget:openai:daily:2026-03-14"
	monthly := "ideadex:budget:openai:monthly:2026-03"
	if err := s.IncrBy(ctx, daily, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(ctx, monthly, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if kv.ttls[daily] != time.Hour {
		t.Errorf("daily TTL = %v", kv.ttls[daily])
	}
	if kv.ttls[monthly] != 10*time.Hour {
		t.Errorf("monthly TTL = %v", kv.ttls[monthly])
	}
}

func TestStore_DefaultTTLs(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, 0, 0)

	_ = s.IncrBy(context.Background(), "ideadex:budget:p:daily:2026-03-14", 1)
	_ = s.IncrBy(context.Background(), "unrecognised", 1)

	if kv.ttls["ideadex:budget:p:daily:2026-03-14"] != DefaultDailyTTL {
		t.Errorf("expected default daily TTL, got %v", kv.ttls["ideadex:budget:p:daily:2026-03-14"])
	}
	if kv.ttls["unrecognised"] != DefaultMonthlyTTL {
		t.Errorf("unknown period should use the monthly TTL, got %v", kv.ttls["unrecognised"])
	}
}

func TestStore_Get(t *testing.T) {
	kv := newFakeCounters()
	kv.vals["k:daily:x"] = 42
	s := New(kv, 0, 0)

	if v, err := s.Get(context.Background(), "k:daily:x"); err != nil || v != 42 {
		t.Errorf("Get = %d, %v", v, err)
	}
	if v, err := s.Get(context.Background(), "missing"); err != nil || v != 0 {
		t.Errorf("missing key: Get = %d, %v", v, err)
	}
}

func TestStore_Errors(t *testing.T) {
	kv := newFakeCounters()
	kv.err = errors.New("conn refused")
	s := New(kv, 0, 0)

	if err := s.IncrBy(context.Background(), "k", 1); !errors.Is(err, kv.err) {
		t.Errorf("expected wrapped IncrBy error, got %v", err)
	}
	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, kv.err) {
		t.Errorf("expected wrapped Get error, got %v", err)
	}
}

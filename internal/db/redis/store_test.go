package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ideadex/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addresses")
	}
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded))

	var dbErr *db.Error
	if err := s.Ping(context.Background()); !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected PING error, got %v", err)
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(rueidis.ErrClosing)),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(rueidis.ErrClosing)).AnyTimes()

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if !errors.Is(err, rueidis.ErrClosing) {
		t.Fatalf("expected last ping error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "ideadex:emb:k")).
		Return(mock.Result(mock.RedisBlobString("vec")))

	data, err := s.Get(context.Background(), "ideadex:emb:k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "vec" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "missing")).Return(mock.Result(mock.RedisNil()))

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_NetworkError(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.ErrorResult(errors.New("connection reset")))

	_, err := s.Get(context.Background(), "k")
	if errors.Is(err, db.ErrKeyNotFound) {
		t.Error("network errors must not look like a miss")
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet || dbErr.Key != "k" {
		t.Errorf("expected GET error for key k, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_NoExpiry(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v")).Return(mock.Result(mock.RedisString("OK")))

	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v")).Return(mock.ErrorResult(rueidis.ErrClosing))

	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), 0); !errors.Is(err, rueidis.ErrClosing) {
		t.Errorf("expected wrapped ErrClosing, got %v", err)
	}
}

func TestCounter(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("GET", "n")).Return(mock.Result(mock.RedisBlobString("42"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("GET", "n")).Return(mock.Result(mock.RedisNil())),
	)

	if v, err := s.Counter(context.Background(), "n"); err != nil || v != 42 {
		t.Errorf("Counter = %d, %v", v, err)
	}
	if v, err := s.Counter(context.Background(), "n"); err != nil || v != 0 {
		t.Errorf("missing counter = %d, %v", v, err)
	}
}

func TestCounter_NotANumber(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "n")).Return(mock.Result(mock.RedisBlobString("forty-two")))

	var dbErr *db.Error
	if _, err := s.Counter(context.Background(), "n"); !errors.As(err, &dbErr) || dbErr.Op != db.OpCounter {
		t.Errorf("expected COUNTER error, got %v", err)
	}
}

func TestIncrWithExpiry(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("INCRBY", "n", "5"),
			mock.Match("EXPIRE", "n", "3600", "NX"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(12)),
			mock.Result(mock.RedisInt64(0)),
		})

	v, err := s.IncrWithExpiry(context.Background(), "n", 5, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 12 {
		t.Errorf("expected 12, got %d", v)
	}
}

func TestIncrWithExpiry_ExpireFails(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(3)),
			mock.ErrorResult(errors.New("ERR unknown option")),
		})

	v, err := s.IncrWithExpiry(context.Background(), "n", 3, time.Hour)
	if err == nil {
		t.Fatal("expected error")
	}
	if v != 3 {
		t.Errorf("increment result should survive an expiry error, got %d", v)
	}
}

package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ideadex/internal/db"
)

// Counter returns the integer at key, 0 when it does not exist.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsInt64()
	switch {
	case rueidis.IsRedisNil(err):
		return 0, nil
	case err != nil:
		return 0, &db.Error{Op: db.OpCounter, Key: key, Err: err}
	}
	return val, nil
}

// IncrWithExpiry sends INCRBY and EXPIRE NX in one round trip.
func (s *Store) IncrWithExpiry(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	secs := max(int64(ttl/time.Second), 1)
	res := s.client.DoMulti(ctx,
		s.client.B().Incrby().Key(key).Increment(delta).Build(),
		s.client.B().Expire().Key(key).Seconds(secs).Nx().Build(),
	)

	val, err := res[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncr, Key: key, Err: err}
	}
	if err := res[1].Error(); err != nil {
		return val, &db.Error{Op: db.OpIncr, Key: key, Err: err}
	}
	return val, nil
}

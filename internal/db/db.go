// Package db defines the key-value contract behind the embedding cache and
// the token budget counters.
package db

import (
	"context"
	"time"
)

// Store is the database facade. Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	Cache
	Counters
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache holds opaque values that expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Counters are integer keys whose expiry starts at the first increment.
type Counters interface {
	// Counter returns the current value, 0 for a missing key.
	Counter(ctx context.Context, key string) (int64, error)
	// IncrWithExpiry adds delta and returns the new value. Later increments
	// never push the expiry back.
	IncrWithExpiry(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

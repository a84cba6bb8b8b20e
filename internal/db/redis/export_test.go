package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a mock rueidis client.
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c)
}

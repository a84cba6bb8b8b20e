package db

import "errors"

// ErrKeyNotFound is returned by Get for a missing key.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the failing command in an Error.
const (
	OpPing    = "PING"
	OpGet     = "GET"
	OpSet     = "SET"
	OpCounter = "COUNTER"
	OpIncr    = "INCRBY+EXPIRE"
)

// Error wraps an underlying error with the operation name.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

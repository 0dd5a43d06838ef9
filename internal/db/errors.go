package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrClosed     = errors.New("db: store is closed")
	ErrInvalidArg = errors.New("db: invalid argument")
)

// Op constants map to Redis command names for error context.
const (
	OpPing   = "PING"
	OpDel    = "DEL"
	OpLPush  = "LPUSH"
	OpLTrim  = "LTRIM"
	OpLRange = "LRANGE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListStore keeps capped lists of opaque values, newest first.
type ListStore interface {
	// LPushTrim prepends value to the list at key and keeps at most maxLen entries.
	LPushTrim(ctx context.Context, key string, value []byte, maxLen int) error
	// LRange returns entries start..stop inclusive, newest first. A negative stop means the end.
	LRange(ctx context.Context, key string, start, stop int) ([][]byte, error)
	Del(ctx context.Context, key string) error
}

// Package memory is the in-process db.Store used when no external history backend is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kailas-cloud/contactdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps lists in a map guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	lists  map[string][][]byte
	closed bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{lists: make(map[string][][]byte)}
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns immediately; an in-process store is ready once created.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close drops all lists.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.lists = nil
}

// LPushTrim prepends value and caps the list at maxLen.
func (s *Store) LPushTrim(_ context.Context, key string, value []byte, maxLen int) error {
	if maxLen <= 0 {
		return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("%w: maxLen %d", db.ErrInvalidArg, maxLen)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpLPush, Err: db.ErrClosed}
	}

	list := append([][]byte{slices.Clone(value)}, s.lists[key]...)
	if len(list) > maxLen {
		list = list[:maxLen]
	}
	s.lists[key] = list
	return nil
}

// LRange returns a copy of entries start..stop.
func (s *Store) LRange(_ context.Context, key string, start, stop int) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &db.Error{Op: db.OpLRange, Err: db.ErrClosed}
	}

	list := s.lists[key]
	lo, hi, ok := db.Window(len(list), start, stop)
	if !ok {
		return nil, nil
	}
	out := make([][]byte, 0, hi-lo+1)
	for _, v := range list[lo : hi+1] {
		out = append(out, slices.Clone(v))
	}
	return out, nil
}

// Del removes a list.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpDel, Err: db.ErrClosed}
	}
	delete(s.lists, key)
	return nil
}

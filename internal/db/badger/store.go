// Package badger is an embedded db.Store backed by BadgerDB.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/db"
)

const (
	listPrefix        = "lst"
	listSeqKey        = "lstseq"
	sequenceBandwidth = 100
	seqSize           = 8
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds options for opening a Badger store.
type Config struct {
	Path     string
	InMemory bool
}

// Store keeps each list as keys of the form prefix|len(key)|key|seq.
// Sequence numbers grow monotonically so reverse iteration yields newest first.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *zap.Logger
	mu     sync.Mutex
}

// loggerAdapter adapts zap to the badger.Logger interface.
type loggerAdapter struct {
	sugar *zap.SugaredLogger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any)   { l.sugar.Errorf(msg, items...) }
func (l *loggerAdapter) Warningf(msg string, items ...any) { l.sugar.Warnf(msg, items...) }
func (l *loggerAdapter) Infof(msg string, items ...any)    { l.sugar.Debugf(msg, items...) }
func (l *loggerAdapter) Debugf(msg string, items ...any)   { l.sugar.Debugf(msg, items...) }

// Open opens a Badger database. The directory is created if missing.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: path is required", db.ErrInvalidArg)
		}
		if err := ensureDir(cfg.Path); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = &loggerAdapter{sugar: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := bdb.GetSequence([]byte(listSeqKey), sequenceBandwidth)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	return &Store{db: bdb, seq: seq, logger: logger}, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// Ping reports whether the database is open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: db.ErrClosed}
	}
	return nil
}

// WaitForReady returns as soon as the database is open.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close releases the sequence and closes the database.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db.IsClosed() {
		return
	}
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("Release sequence failed", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Close badger failed", zap.Error(err))
	}
}

// withTx runs fn in a transaction and commits write transactions on success.
func (s *Store) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := s.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

func listKeyPrefix(key string) []byte {
	buf := make([]byte, 0, len(listPrefix)+2+len(key))
	buf = append(buf, listPrefix...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(key)))
	return append(buf, key...)
}

func entryKey(prefix []byte, seq uint64) []byte {
	buf := make([]byte, len(prefix), len(prefix)+seqSize)
	copy(buf, prefix)
	return binary.BigEndian.AppendUint64(buf, seq)
}

// newestFirst walks the list from its newest entry. fn returns false to stop.
func newestFirst(tx *badger.Txn, prefix []byte, keysOnly bool, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = true
	opts.PrefetchValues = !keysOnly
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Seek(entryKey(prefix, ^uint64(0))); iter.ValidForPrefix(prefix); iter.Next() {
		more, err := fn(iter.Item())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

// LPushTrim prepends value and deletes entries beyond maxLen.
func (s *Store) LPushTrim(_ context.Context, key string, value []byte, maxLen int) error {
	if maxLen <= 0 {
		return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("%w: maxLen %d", db.ErrInvalidArg, maxLen)}
	}
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpLPush, Err: db.ErrClosed}
	}

	s.mu.Lock()
	next, err := s.seq.Next()
	s.mu.Unlock()
	if err != nil {
		return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("next sequence: %w", err)}
	}

	prefix := listKeyPrefix(key)
	err = s.withTx(func(tx *badger.Txn) error {
		if err := tx.Set(entryKey(prefix, next), value); err != nil {
			return &db.Error{Op: db.OpLPush, Err: err}
		}

		var stale [][]byte
		kept := 0
		err := newestFirst(tx, prefix, true, func(item *badger.Item) (bool, error) {
			kept++
			if kept > maxLen {
				stale = append(stale, item.KeyCopy(nil))
			}
			return true, nil
		})
		if err != nil {
			return &db.Error{Op: db.OpLTrim, Err: err}
		}
		for _, k := range stale {
			if err := tx.Delete(k); err != nil {
				return &db.Error{Op: db.OpLTrim, Err: err}
			}
		}
		return nil
	}, true)
	if err != nil {
		var dbErr *db.Error
		if errors.As(err, &dbErr) {
			return err
		}
		return &db.Error{Op: db.OpLPush, Err: err}
	}
	return nil
}

// LRange returns entries start..stop, newest first.
func (s *Store) LRange(_ context.Context, key string, start, stop int) ([][]byte, error) {
	if s.db.IsClosed() {
		return nil, &db.Error{Op: db.OpLRange, Err: db.ErrClosed}
	}

	var all [][]byte
	err := s.withTx(func(tx *badger.Txn) error {
		return newestFirst(tx, listKeyPrefix(key), false, func(item *badger.Item) (bool, error) {
			if stop >= 0 && len(all) > stop {
				return false, nil
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return false, err
			}
			all = append(all, val)
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}

	lo, hi, ok := db.Window(len(all), start, stop)
	if !ok {
		return nil, nil
	}
	return all[lo : hi+1], nil
}

// Del removes every entry of the list.
func (s *Store) Del(_ context.Context, key string) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpDel, Err: db.ErrClosed}
	}

	err := s.withTx(func(tx *badger.Txn) error {
		var keys [][]byte
		err := newestFirst(tx, listKeyPrefix(key), true, func(item *badger.Item) (bool, error) {
			keys = append(keys, item.KeyCopy(nil))
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

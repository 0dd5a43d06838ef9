package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/contactdex/internal/db"
)

// LPushTrim prepends value and trims the list to maxLen in one DoMulti round-trip.
func (s *Store) LPushTrim(ctx context.Context, key string, value []byte, maxLen int) error {
	if maxLen <= 0 {
		return &db.Error{Op: db.OpLPush, Err: fmt.Errorf("%w: maxLen %d", db.ErrInvalidArg, maxLen)}
	}

	cmds := rueidis.Commands{
		s.b().Lpush().Key(key).Element(string(value)).Build(),
		s.b().Ltrim().Key(key).Start(0).Stop(int64(maxLen - 1)).Build(),
	}
	ops := [...]string{db.OpLPush, db.OpLTrim}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: ops[i], Err: fmt.Errorf("key %s: %w", key, err)}
		}
	}
	return nil
}

// LRange returns entries start..stop. A missing key yields an empty result.
func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([][]byte, error) {
	cmd := s.b().Lrange().Key(key).Start(int64(start)).Stop(int64(stop)).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

// Del removes a key.
func (s *Store) Del(ctx context.Context, key string) error {
	cmd := s.b().Del().Key(key).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

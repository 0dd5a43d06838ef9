package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/contactdex/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func strs(vals [][]byte) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func TestLPushTrim_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.LPushTrim(ctx, "h", []byte(v), 10))
	}

	got, err := s.LRange(ctx, "h", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, strs(got))
}

func TestLPushTrim_Caps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 7 {
		require.NoError(t, s.LPushTrim(ctx, "h", []byte(fmt.Sprint(i)), 3))
	}

	got, err := s.LRange(ctx, "h", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"6", "5", "4"}, strs(got))
}

func TestLPushTrim_InvalidMaxLen(t *testing.T) {
	s := newTestStore(t)
	err := s.LPushTrim(context.Background(), "h", []byte("x"), 0)
	assert.ErrorIs(t, err, db.ErrInvalidArg)
}

func TestLRange_Window(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.LPushTrim(ctx, "h", []byte(v), 10))
	}

	got, err := s.LRange(ctx, "h", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, strs(got))

	got, err = s.LRange(ctx, "h", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLists_AreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LPushTrim(ctx, "a", []byte("1"), 10))
	require.NoError(t, s.LPushTrim(ctx, "ab", []byte("2"), 10))

	got, err := s.LRange(ctx, "a", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, strs(got))
}

func TestDel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.LPushTrim(ctx, "h", []byte("x"), 10))
	require.NoError(t, s.LPushTrim(ctx, "other", []byte("y"), 10))

	require.NoError(t, s.Del(ctx, "h"))

	got, err := s.LRange(ctx, "h", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.LRange(ctx, "other", 0, -1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestClosedStore(t *testing.T) {
	s, err := NewMemoryStore()
	require.NoError(t, err)
	s.Close()
	s.Close()

	ctx := context.Background()
	assert.ErrorIs(t, s.Ping(ctx), db.ErrClosed)
	assert.ErrorIs(t, s.LPushTrim(ctx, "h", []byte("x"), 1), db.ErrClosed)
	_, err = s.LRange(ctx, "h", 0, -1)
	assert.ErrorIs(t, err, db.ErrClosed)
	assert.ErrorIs(t, s.Del(ctx, "h"), db.ErrClosed)
}

func TestOpen_OnDiskPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	ctx := context.Background()

	s, err := Open(Config{Path: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.LPushTrim(ctx, "h", []byte("first"), 10))
	s.Close()

	s, err = Open(Config{Path: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.LPushTrim(ctx, "h", []byte("second"), 10))

	got, err := s.LRange(ctx, "h", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, strs(got))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.ErrorIs(t, err, db.ErrInvalidArg)
}

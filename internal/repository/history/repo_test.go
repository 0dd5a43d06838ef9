package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/contactdex/internal/db/memory"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
)

func hit(total int) result.Stats {
	return result.Stats{Total: total, Kind: query.Contains, ExecutionTime: 12 * time.Millisecond}
}

func newRepo(t *testing.T, cfg Config) *Repo {
	t.Helper()
	s := memory.NewStore()
	t.Cleanup(s.Close)
	return New(s, cfg)
}

func TestRecordSearch_StoresEntry(t *testing.T) {
	r := newRepo(t, Config{})
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	ctx := context.Background()

	err := r.RecordSearch(ctx, "  acme  ", filter.Criteria{Phone: "555"}, hit(3))
	require.NoError(t, err)

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	e := got[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "acme", e.Query)
	assert.Equal(t, []string{"phone"}, e.Filters)
	assert.Equal(t, query.Contains, e.Kind)
	assert.Equal(t, 3, e.Total)
	assert.Equal(t, int64(12), e.DurationMs)
	assert.Equal(t, fixed, e.RecordedAt)
}

func TestRecordSearch_SkipsBlank(t *testing.T) {
	r := newRepo(t, Config{})
	ctx := context.Background()

	require.NoError(t, r.RecordSearch(ctx, "   ", filter.Criteria{}, hit(1)))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordSearch_CapsEntries(t *testing.T) {
	r := newRepo(t, Config{MaxEntries: 3})
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, r.RecordSearch(ctx, fmt.Sprintf("q%d", i), filter.Criteria{}, hit(1)))
	}

	got, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "q4", got[0].Query)
	assert.Equal(t, "q2", got[2].Query)
}

func TestSuggestFromHistory(t *testing.T) {
	r := newRepo(t, Config{})
	ctx := context.Background()

	require.NoError(t, r.RecordSearch(ctx, "SG COM-10*", filter.Criteria{}, hit(4)))
	require.NoError(t, r.RecordSearch(ctx, "sg com-2 to sg com-5", filter.Criteria{}, hit(4)))
	require.NoError(t, r.RecordSearch(ctx, "sg com-10*", filter.Criteria{}, hit(4)))
	require.NoError(t, r.RecordSearch(ctx, "sg com-99", filter.Criteria{}, hit(0)))
	require.NoError(t, r.RecordSearch(ctx, "sg com-77", filter.Criteria{}, result.Stats{Total: 1, Failed: true}))
	require.NoError(t, r.RecordSearch(ctx, "acme", filter.Criteria{}, hit(1)))

	got, err := r.SuggestFromHistory(ctx, "SG", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"sg com-10*", "sg com-2 to sg com-5"}, got)

	got, err = r.SuggestFromHistory(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, got)

	got, err = r.SuggestFromHistory(ctx, "SG", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecent_SkipsCorruptEntries(t *testing.T) {
	s := memory.NewStore()
	defer s.Close()
	r := New(s, Config{KeyPrefix: "t"})
	ctx := context.Background()

	require.NoError(t, s.LPushTrim(ctx, "t:history", []byte("{not json"), 10))
	good, err := json.Marshal(Entry{Query: "acme", Total: 1})
	require.NoError(t, err)
	require.NoError(t, s.LPushTrim(ctx, "t:history", good, 10))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0].Query)
}

func TestClear(t *testing.T) {
	r := newRepo(t, Config{})
	ctx := context.Background()
	require.NoError(t, r.RecordSearch(ctx, "acme", filter.Criteria{}, hit(1)))

	require.NoError(t, r.Clear(ctx))

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Mocks ---

type failingStore struct{ err error }

func (f failingStore) LPushTrim(context.Context, string, []byte, int) error { return f.err }
func (f failingStore) LRange(context.Context, string, int, int) ([][]byte, error) {
	return nil, f.err
}
func (f failingStore) Del(context.Context, string) error { return f.err }

func TestStoreErrors_AreWrapped(t *testing.T) {
	boom := errors.New("boom")
	r := New(failingStore{err: boom}, Config{})
	ctx := context.Background()

	assert.ErrorIs(t, r.RecordSearch(ctx, "acme", filter.Criteria{}, hit(1)), boom)
	_, err := r.SuggestFromHistory(ctx, "a", 3)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.Clear(ctx), boom)
}

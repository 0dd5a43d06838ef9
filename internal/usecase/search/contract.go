package search

import (
	"context"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/index"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
)

// IndexManager owns the published record snapshot and its index.
type IndexManager interface {
	Current() *index.Snapshot
	BuildIndex(ctx context.Context, records []record.Record) (*index.Snapshot, error)
	AddRecord(ctx context.Context, r record.Record) (*index.Snapshot, error)
	RemoveRecord(ctx context.Context, id string) (*index.Snapshot, error)
	OptimizeIndex() int
}

// RecordFilter evaluates field criteria over snapshot positions.
type RecordFilter interface {
	Filter(ctx context.Context, records []record.Record, candidates []int, c filter.Criteria) (filter.Result, error)
}

// Recoverer turns a pipeline failure into a result.
type Recoverer interface {
	Recover(ctx context.Context, exec recovery.Executor, req request.Request, cause error) *result.SearchResult
	Stats() recovery.Stats
}

// HistoryStore is the optional search-history collaborator. Both hooks are best-effort.
type HistoryStore interface {
	RecordSearch(ctx context.Context, query string, criteria filter.Criteria, stats result.Stats) error
	SuggestFromHistory(ctx context.Context, partial string, limit int) ([]string, error)
}

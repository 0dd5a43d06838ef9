// Package history persists recent searches in a capped list and suggests queries from them.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
)

const (
	// DefaultKeyPrefix namespaces history keys in shared stores.
	DefaultKeyPrefix = "contactdex"
	// DefaultMaxEntries caps the stored list.
	DefaultMaxEntries = 500
)

// store is the consumer interface for the list backend (ISP).
type store interface {
	LPushTrim(ctx context.Context, key string, value []byte, maxLen int) error
	LRange(ctx context.Context, key string, start, stop int) ([][]byte, error)
	Del(ctx context.Context, key string) error
}

// Entry is one stored search.
type Entry struct {
	ID         string     `json:"id"`
	Query      string     `json:"query"`
	Filters    []string   `json:"filters,omitempty"`
	Kind       query.Kind `json:"kind"`
	Total      int        `json:"total"`
	DurationMs int64      `json:"duration_ms"`
	Failed     bool       `json:"failed,omitempty"`
	Fallback   bool       `json:"fallback,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Config configures the repository.
type Config struct {
	KeyPrefix  string
	MaxEntries int
}

// Repo implements usecase/search.HistoryStore.
type Repo struct {
	store      store
	key        string
	maxEntries int
	now        func() time.Time
}

// New creates a history repository.
func New(s store, cfg Config) *Repo {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Repo{store: s, key: prefix + ":history", maxEntries: maxEntries, now: time.Now}
}

// RecordSearch appends a search to the history. Blank queries without filters are skipped.
func (r *Repo) RecordSearch(ctx context.Context, q string, criteria filter.Criteria, stats result.Stats) error {
	q = strings.TrimSpace(q)
	active := criteria.Active()
	if q == "" && len(active) == 0 {
		return nil
	}

	e := Entry{
		ID:         uuid.NewString(),
		Query:      q,
		Filters:    active,
		Kind:       stats.Kind,
		Total:      stats.Total,
		DurationMs: stats.ExecutionTime.Milliseconds(),
		Failed:     stats.Failed,
		Fallback:   stats.Fallback,
		RecordedAt: r.now().UTC(),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := r.store.LPushTrim(ctx, r.key, data, r.maxEntries); err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Undecodable entries are skipped.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > r.maxEntries {
		limit = r.maxEntries
	}
	raw, err := r.store.LRange(ctx, r.key, 0, limit-1)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, b := range raw {
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// SuggestFromHistory returns distinct past queries starting with partial, newest first.
// Failed searches and searches without hits are not suggested.
func (r *Repo) SuggestFromHistory(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	entries, err := r.Recent(ctx, r.maxEntries)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(partial))
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if e.Failed || e.Total == 0 || e.Query == "" {
			continue
		}
		lower := strings.ToLower(e.Query)
		if !strings.HasPrefix(lower, needle) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, e.Query)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Clear drops the stored history.
func (r *Repo) Clear(ctx context.Context) error {
	if err := r.store.Del(ctx, r.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

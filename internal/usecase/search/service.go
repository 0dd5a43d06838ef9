// Package search orchestrates the filter, match and rank pipeline under a time budget and hands
// failures to the recovery manager.
package search

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/rank"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/index"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
)

// Suggestion and batching defaults.
const (
	MaxSuggestions              = 5
	DefaultProgressiveBatchSize = 50
)

// Config tunes the orchestrator.
type Config struct {
	Limits               request.Limits
	ProgressiveBatchSize int
	// IDPrefix is the canonical ID prefix used in pattern examples, e.g. "SG COM".
	IDPrefix string
}

// Metrics are the optional collectors the service reports to.
type Metrics struct {
	Searches *prometheus.CounterVec   // labels: outcome, kind
	Duration *prometheus.HistogramVec // label: mode
}

// Service is the search orchestrator.
type Service struct {
	index    IndexManager
	filters  RecordFilter
	recovery Recoverer
	history  HistoryStore
	cfg      Config
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	perf perfCounters
}

type perfCounters struct {
	searches   int64
	total      time.Duration
	last       time.Duration
	timeouts   int64
	fallbacks  int64
	recoveries int64
}

// New creates a search service.
func New(idx IndexManager, filters RecordFilter, rec Recoverer, cfg Config, logger *zap.Logger) *Service {
	if cfg.ProgressiveBatchSize <= 0 {
		cfg.ProgressiveBatchSize = DefaultProgressiveBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:    idx,
		filters:  filters,
		recovery: rec,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithHistory attaches the history collaborator.
func (s *Service) WithHistory(h HistoryStore) *Service {
	s.history = h
	return s
}

// WithMetrics attaches collectors.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// Search runs the query box text with field criteria. It always returns a result.
func (s *Service) Search(ctx context.Context, q string, c filter.Criteria, opts request.Options) *result.SearchResult {
	return s.run(ctx, q, mode.Standard, c, opts)
}

// SearchByIDPattern matches IDs by wildcard when pattern ends with "*", otherwise by exact ID
// or prefix with the exact match first.
func (s *Service) SearchByIDPattern(ctx context.Context, pattern string, opts request.Options) *result.SearchResult {
	p := strings.TrimSpace(pattern)
	if strings.HasSuffix(p, "*") {
		return s.run(ctx, p, mode.Wildcard, filter.Criteria{}, opts)
	}
	if p != "" {
		p += "*"
	}
	return s.run(ctx, p, mode.IDPattern, filter.Criteria{}, opts)
}

// SearchByRange matches IDs whose trailing number lies within [start, end].
func (s *Service) SearchByRange(ctx context.Context, start, end string, opts request.Options) *result.SearchResult {
	q := strings.TrimSpace(start) + " to " + strings.TrimSpace(end)
	return s.run(ctx, q, mode.Range, filter.Criteria{}, opts)
}

// SearchWithWildcards matches IDs by prefix, appending "*" when missing.
func (s *Service) SearchWithWildcards(ctx context.Context, pattern string, opts request.Options) *result.SearchResult {
	p := strings.TrimSpace(pattern)
	if !strings.HasSuffix(p, "*") {
		p += "*"
	}
	return s.run(ctx, p, mode.Wildcard, filter.Criteria{}, opts)
}

func (s *Service) run(ctx context.Context, q string, m mode.Mode, c filter.Criteria, opts request.Options) *result.SearchResult {
	start := s.now()
	req, err := s.newRequest(q, m, c, opts)
	if err != nil {
		return &result.SearchResult{Query: q, Mode: m, State: result.StateFailed, Records: []record.Record{},
			Error: &result.ErrorInfo{Kind: failure.KindUnknown, Message: err.Error(), Fallback: true}}
	}

	res, err := s.Execute(ctx, req, recovery.Attempt{})
	if err != nil {
		res = s.recovery.Recover(ctx, s, req, err)
		if s.cfg.IDPrefix != "" && len(res.Suggestions) == 0 {
			res.Suggestions = s.examples(q)
		}
	} else if res.Total == 0 {
		res.Suggestions = s.GetSuggestions(ctx, q)
	}
	res.ExecutionTime = s.now().Sub(start)

	s.observe(req, res)
	s.recordHistory(ctx, req, res)
	return res
}

func (s *Service) newRequest(q string, m mode.Mode, c filter.Criteria, opts request.Options) (request.Request, error) {
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	req, err := request.New(q, m, c, opts, s.cfg.Limits)
	if err != nil {
		return request.Request{}, fmt.Errorf("new search request: %w", err)
	}
	return req, nil
}

func (s *Service) observe(req request.Request, res *result.SearchResult) {
	outcome := "ok"
	switch {
	case res.IsFallback():
		outcome = "fallback"
	case res.Failed():
		outcome = "recovered"
	}

	s.mu.Lock()
	s.perf.searches++
	s.perf.total += res.ExecutionTime
	s.perf.last = res.ExecutionTime
	if res.Error != nil {
		if res.Error.Kind == failure.KindTimeout {
			s.perf.timeouts++
		}
		if res.Error.Fallback {
			s.perf.fallbacks++
		}
		if res.Error.Recovered {
			s.perf.recoveries++
		}
	}
	s.mu.Unlock()

	if s.metrics.Searches != nil {
		s.metrics.Searches.WithLabelValues(outcome, string(res.Kind)).Inc()
	}
	if s.metrics.Duration != nil {
		s.metrics.Duration.WithLabelValues(string(req.Mode())).Observe(res.ExecutionTime.Seconds())
	}
	s.logger.Debug("Search completed",
		zap.String("query", req.Query()),
		zap.String("mode", string(req.Mode())),
		zap.String("kind", string(res.Kind)),
		zap.String("outcome", outcome),
		zap.Int("total", res.Total),
		zap.Duration("duration", res.ExecutionTime),
	)
}

func (s *Service) recordHistory(ctx context.Context, req request.Request, res *result.SearchResult) {
	if s.history == nil || strings.TrimSpace(req.Query()) == "" {
		return
	}
	if err := s.history.RecordSearch(ctx, req.Query(), req.Criteria(), res.Stats()); err != nil {
		s.logger.Warn("Failed to record search history", zap.String("query", req.Query()), zap.Error(err))
	}
}

// GetSuggestions returns up to five distinct completions for partial: history first, then
// matching IDs, company names and phones, then canonical pattern examples.
func (s *Service) GetSuggestions(ctx context.Context, partial string) []string {
	p := strings.ToLower(strings.TrimSpace(partial))
	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]struct{})
	add := func(v string) bool {
		v = strings.TrimSpace(v)
		if v == "" {
			return len(out) >= MaxSuggestions
		}
		if _, ok := seen[strings.ToLower(v)]; !ok && len(out) < MaxSuggestions {
			seen[strings.ToLower(v)] = struct{}{}
			out = append(out, v)
		}
		return len(out) >= MaxSuggestions
	}

	if s.history != nil {
		items, err := s.history.SuggestFromHistory(ctx, partial, MaxSuggestions)
		if err != nil {
			s.logger.Warn("History suggestions unavailable", zap.String("partial", partial), zap.Error(err))
		}
		for _, v := range items {
			if add(v) {
				return out
			}
		}
	}

	if p != "" {
		snap := s.index.Current()
		for _, get := range []func(record.Record) string{record.Record.ID, record.Record.CompanyName, record.Record.Phone} {
			for _, r := range snap.Records {
				if v := get(r); strings.Contains(strings.ToLower(v), p) && add(v) {
					return out
				}
			}
		}
	}

	for _, v := range s.examples(partial) {
		if add(v) {
			break
		}
	}
	return out
}

// examples returns canonical query shapes, anchored at the number in partial when present.
func (s *Service) examples(partial string) []string {
	prefix := s.cfg.IDPrefix
	if prefix == "" {
		return nil
	}
	n, ok := query.ExtractNumericID(partial)
	if !ok {
		n = 100
	}
	id := func(v int64) string { return prefix + "-" + strconv.FormatInt(v, 10) }
	return []string{id(n) + "*", id(n) + " to " + id(n+10)}
}

// UpdateRecords replaces the record snapshot and rebuilds the index.
func (s *Service) UpdateRecords(ctx context.Context, records []record.Record) error {
	if _, err := s.index.BuildIndex(ctx, records); err != nil {
		return fmt.Errorf("update records: %w", err)
	}
	return nil
}

// AddRecord indexes one new record.
func (s *Service) AddRecord(ctx context.Context, r record.Record) error {
	if _, err := s.index.AddRecord(ctx, r); err != nil {
		return fmt.Errorf("add record: %w", err)
	}
	return nil
}

// RemoveRecord removes a record by ID and rebuilds the index.
func (s *Service) RemoveRecord(ctx context.Context, id string) error {
	if _, err := s.index.RemoveRecord(ctx, id); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// OptimizeIndex drops empty posting sets and returns how many were removed.
func (s *Service) OptimizeIndex() int {
	return s.index.OptimizeIndex()
}

// PerformanceMetrics are read-only search and index diagnostics.
type PerformanceMetrics struct {
	Searches          int64
	AverageExecution  time.Duration
	LastExecution     time.Duration
	Timeouts          int64
	Fallbacks         int64
	Recoveries        int64
	Generation        uint64
	Records           int
	Terms             map[index.Field]int
	Postings          int
	LastBuildDuration time.Duration
	BuiltAt           time.Time
}

// GetPerformanceMetrics returns search counters and the current index shape.
func (s *Service) GetPerformanceMetrics() PerformanceMetrics {
	s.mu.Lock()
	p := s.perf
	s.mu.Unlock()

	pm := PerformanceMetrics{
		Searches:      p.searches,
		LastExecution: p.last,
		Timeouts:      p.timeouts,
		Fallbacks:     p.fallbacks,
		Recoveries:    p.recoveries,
	}
	if p.searches > 0 {
		pm.AverageExecution = p.total / time.Duration(p.searches)
	}

	snap := s.index.Current()
	pm.Generation = snap.Generation
	pm.Records = snap.Len()
	pm.LastBuildDuration = snap.BuildDuration
	pm.BuiltAt = snap.BuiltAt
	if snap.Index != nil {
		st := snap.Index.Stats()
		pm.Terms = st.Terms
		pm.Postings = st.Postings
	}
	return pm
}

// GetErrorStats returns recovery history statistics.
func (s *Service) GetErrorStats() recovery.Stats {
	return s.recovery.Stats()
}

// ProgressiveOptions tune SearchProgressive. Zero values take the defaults.
type ProgressiveOptions struct {
	BatchSize int
	Timeout   time.Duration
}

// Batch is one ranked slice of a progressive search.
type Batch struct {
	Index   int
	Records []record.Record
	Total   int
	Final   bool
}

// ProgressiveSummary describes a finished progressive search.
type ProgressiveSummary struct {
	Query         string
	Kind          query.Kind
	State         result.State
	Total         int
	Delivered     int
	Batches       int
	Canceled      bool
	ExecutionTime time.Duration
	Warnings      []string
	Error         *result.ErrorInfo
}

// SearchProgressive filters and matches once, then ranks and delivers fixed-size batches in
// order. Cancellation and callback errors stop delivery between batches; delivered batches stand.
func (s *Service) SearchProgressive(
	ctx context.Context, q string, c filter.Criteria, opts ProgressiveOptions, deliver func(Batch) error,
) ProgressiveSummary {
	start := s.now()
	size := opts.BatchSize
	if size <= 0 {
		size = s.cfg.ProgressiveBatchSize
	}
	sum := ProgressiveSummary{Query: q}

	// recovered results arrive as one window, so it must hold every match
	req, err := s.newRequest(q, mode.Progressive, c, request.Options{Timeout: opts.Timeout, Unpaged: true})
	if err != nil {
		sum.State = result.StateFailed
		sum.Error = &result.ErrorInfo{Kind: failure.KindUnknown, Message: err.Error(), Fallback: true}
		return sum
	}

	m, err := timed(ctx, req.Timeout(), func(ctx context.Context, tr *tracker) (*matched, error) {
		return s.match(ctx, req, recovery.Attempt{}, tr)
	})
	var batches [][]record.Record
	if err != nil {
		res := s.recovery.Recover(ctx, s, req, err)
		sum.Kind, sum.State, sum.Error, sum.Warnings = res.Kind, res.State, res.Error, res.Warnings
		batches = chunk(res.Records, size)
		sum.Total = res.Total
	} else {
		sum.Kind, sum.State, sum.Warnings, sum.Total = m.parsed.Kind(), result.StateDone, m.warnings, len(m.positions)
		for _, part := range chunk(m.positions, size) {
			recs := make([]record.Record, len(part))
			for i, pos := range part {
				recs[i] = m.snap.Records[pos]
			}
			batches = append(batches, recs)
		}
	}

	for i, b := range batches {
		if ctx.Err() != nil {
			sum.Canceled = true
			break
		}
		if err == nil {
			b = rank.Rank(b, m.parsed)
		}
		if cbErr := deliver(Batch{Index: i, Records: b, Total: sum.Total, Final: i == len(batches)-1}); cbErr != nil {
			sum.Delivered += len(b)
			sum.Batches++
			sum.Canceled = true
			s.logger.Debug("Progressive delivery stopped by callback", zap.Error(cbErr))
			break
		}
		sum.Delivered += len(b)
		sum.Batches++
		runtime.Gosched()
	}
	sum.ExecutionTime = s.now().Sub(start)
	return sum
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for c := range slices.Chunk(items, size) {
		out = append(out, c)
	}
	return out
}

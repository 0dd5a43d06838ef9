// Package recovery classifies search failures and re-runs a simplified search through a fixed
// strategy table, ending in an empty graceful-fallback result when every path is exhausted.
package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxFallbackResults = 1000
	DefaultRetryBaseDelay     = time.Second
	DefaultMaxRetries         = 2
	maxSuggestions            = 4
)

// Config tunes recovery.
type Config struct {
	IDPrefix           string
	MaxFallbackResults int
	RetryBaseDelay     time.Duration
	MaxRetries         int
	HistoryCapacity    int
}

// Manager executes recovery strategies and keeps the attempt history.
type Manager struct {
	cfg       Config
	corrector *Corrector
	history   *History
	attempts  *prometheus.CounterVec
	logger    *zap.Logger
	now       func() time.Time
	wait      func(ctx context.Context, d time.Duration) error
}

// NewManager creates a recovery manager.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.MaxFallbackResults <= 0 {
		cfg.MaxFallbackResults = DefaultMaxFallbackResults
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		corrector: NewCorrector(cfg.IDPrefix),
		history:   NewHistory(cfg.HistoryCapacity),
		logger:    logger,
		now:       time.Now,
		wait:      sleep,
	}
}

// WithMetrics attaches a counter labelled by kind, strategy and outcome.
func (m *Manager) WithMetrics(attempts *prometheus.CounterVec) *Manager {
	m.attempts = attempts
	return m
}

// Corrector returns the pattern corrector.
func (m *Manager) Corrector() *Corrector { return m.corrector }

// Stats returns history statistics.
func (m *Manager) Stats() Stats { return m.history.Stats(m.now()) }

// Recover handles cause for req and always returns a well-formed result.
func (m *Manager) Recover(ctx context.Context, exec Executor, req request.Request, cause error) *result.SearchResult {
	kind := failure.Classify(cause)
	strategy := StrategyFor(kind)

	m.logger.Warn("Search failed, recovering",
		zap.String("kind", string(kind)),
		zap.String("strategy", string(strategy)),
		zap.String("query", req.Query()),
		zap.Error(cause),
	)

	var res *result.SearchResult
	switch strategy {
	case StrategyTimeout:
		reduced := req.WithCriteria(req.Criteria().Reduced()).WithTimeout(req.Timeout() / 2)
		res = m.try(ctx, exec, kind, strategy, reduced, Attempt{}, 1, true)
	case StrategyPatternCorrection:
		res = m.correctPattern(ctx, exec, kind, req)
	case StrategyFallbackSearch:
		res = m.try(ctx, exec, kind, strategy, req,
			Attempt{BypassIndex: true, MaxResults: m.cfg.MaxFallbackResults}, 1, true)
	case StrategyFilterSimplification:
		res = m.try(ctx, exec, kind, strategy, req.WithCriteria(req.Criteria().Reduced()), Attempt{}, 1, true)
	case StrategyRetryWithBackoff:
		res = m.retry(ctx, exec, kind, req)
	}
	if res == nil {
		res = m.graceful(kind, req, cause)
	}
	res.State = result.FinalState(kind, res.Error.Recovered)
	if stage := failure.StageOf(cause); stage != "" {
		res.Error.FailedAt = result.StateOf(stage)
	}
	return res
}

func (m *Manager) correctPattern(ctx context.Context, exec Executor, kind failure.Kind, req request.Request) *result.SearchResult {
	corrected, changed := m.corrector.Correct(req.Query())
	if changed && query.ValidatePattern(corrected).Valid {
		if res := m.try(ctx, exec, kind, StrategyPatternCorrection, req.WithQuery(corrected), Attempt{}, 1, false); res != nil {
			res.Error.CorrectedQuery = corrected
			res.Error.Message = fmt.Sprintf("Showing results for %q.", corrected)
			res.Suggestions = prepend(fmt.Sprintf("Did you mean %q?", corrected), res.Suggestions)
			return res
		}
	}

	res := m.try(ctx, exec, kind, StrategyPatternCorrection, req, Attempt{BypassIndex: true, Literal: true}, 2, true)
	if res != nil {
		res.Error.Message = "The query pattern was invalid, so it was matched as plain text."
		if changed {
			res.Error.CorrectedQuery = corrected
		}
	}
	return res
}

func (m *Manager) retry(ctx context.Context, exec Executor, kind failure.Kind, req request.Request) *result.SearchResult {
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		if err := m.wait(ctx, m.cfg.RetryBaseDelay*time.Duration(attempt)); err != nil {
			m.record(kind, StrategyRetryWithBackoff, req, attempt, err)
			return nil
		}
		if res := m.try(ctx, exec, kind, StrategyRetryWithBackoff, req, Attempt{}, attempt, false); res != nil {
			return res
		}
	}
	return nil
}

// try runs one attempt and annotates a successful result. It returns nil on failure.
func (m *Manager) try(
	ctx context.Context, exec Executor, kind failure.Kind, strategy Strategy,
	req request.Request, a Attempt, attempt int, degraded bool,
) *result.SearchResult {
	res, err := exec.Execute(ctx, req, a)
	if err == nil && res == nil {
		err = fmt.Errorf("executor returned no result")
	}
	m.record(kind, strategy, req, attempt, err)
	if err != nil {
		m.logger.Warn("Recovery attempt failed",
			zap.String("kind", string(kind)),
			zap.String("strategy", string(strategy)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return nil
	}

	res.Error = &result.ErrorInfo{
		Kind:      kind,
		Strategy:  string(strategy),
		Message:   strategy.message(),
		Fallback:  degraded,
		Recovered: true,
	}
	if len(res.Suggestions) == 0 && degraded {
		res.Suggestions = m.suggestions(kind, req.Query())
	}
	return res
}

func (m *Manager) graceful(kind failure.Kind, req request.Request, cause error) *result.SearchResult {
	m.record(kind, StrategyGracefulFallback, req, 0, cause)
	m.logger.Error("Search fell back to an empty result",
		zap.String("kind", string(kind)),
		zap.String("query", req.Query()),
		zap.Error(cause),
	)

	corrected, changed := m.corrector.Correct(req.Query())
	suggestions := m.suggestions(kind, req.Query())
	info := &result.ErrorInfo{
		Kind:     kind,
		Strategy: string(StrategyGracefulFallback),
		Message:  userMessage(kind),
		Fallback: true,
	}
	if changed {
		info.CorrectedQuery = corrected
		suggestions = prepend(fmt.Sprintf("Did you mean %q?", corrected), suggestions)
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	return &result.SearchResult{
		Records:     []record.Record{},
		Query:       req.Query(),
		Kind:        query.Parse(req.Query()).Kind(),
		Mode:        req.Mode(),
		State:       result.StateFailed,
		Suggestions: suggestions,
		Pagination:  result.Paginate(0, req.Page(), req.PageSize()),
		Error:       info,
	}
}

func (m *Manager) record(kind failure.Kind, strategy Strategy, req request.Request, attempt int, err error) {
	e := Entry{
		At:       m.now(),
		Kind:     kind,
		Strategy: strategy,
		Query:    req.Query(),
		Attempt:  attempt,
		Success:  err == nil,
	}
	outcome := "recovered"
	if err != nil {
		e.Message = err.Error()
		outcome = "failed"
	}
	m.history.Add(e)
	if m.attempts != nil {
		m.attempts.WithLabelValues(string(kind), string(strategy), outcome).Inc()
	}
}

// suggestions returns one to four actionable hints for kind.
func (m *Manager) suggestions(kind failure.Kind, q string) []string {
	p := m.corrector.Prefix()
	if p == "" {
		p = "ID"
	}
	wildcard := fmt.Sprintf("Use a wildcard such as %q", p+"-100*")
	rng := fmt.Sprintf("Use a range such as %q", p+"-100 to "+p+"-110")

	var out []string
	switch kind {
	case failure.KindPatternInvalid:
		if lo, hi, ok := swappedRange(q); ok {
			out = append(out, fmt.Sprintf("Did you mean %q?", lo+" to "+hi))
		}
		out = append(out, rng, wildcard)
	case failure.KindTimeout:
		out = append(out, "Add an id or phone filter to narrow the search", "Use a more specific query", wildcard)
	case failure.KindFilter:
		out = append(out, "Remove or simplify some filters", "Check the date range format (YYYY-MM-DD)")
	case failure.KindIndex:
		out = append(out, "Try again after the index rebuild completes", "Use a more specific query")
	case failure.KindNetwork:
		out = append(out, "Check the connection to the validation service", "Search without a status filter")
	case failure.KindMemory:
		out = append(out, "Use a more specific query", "Add filters to narrow the search")
	default:
		out = append(out, "Try the search again", "Use a simpler query")
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// swappedRange returns the bounds of a reversed range query in ascending order.
func swappedRange(q string) (string, string, bool) {
	p := query.Parse(q)
	if p.Kind() != query.Range {
		return "", "", false
	}
	s, ok1 := query.ExtractNumericID(p.Start())
	e, ok2 := query.ExtractNumericID(p.End())
	if !ok1 || !ok2 || s <= e {
		return "", "", false
	}
	return p.End(), p.Start(), true
}

func userMessage(kind failure.Kind) string {
	switch kind {
	case failure.KindTimeout:
		return "The search timed out. Try narrowing it down."
	case failure.KindPatternInvalid:
		return "The search pattern is not valid."
	case failure.KindNetwork:
		return "A required service is unreachable. Try again later."
	case failure.KindMemory:
		return "The search needed too much memory. Try a more specific query."
	case failure.KindIndex:
		return "The search index is unavailable."
	case failure.KindFilter:
		return "The filters could not be applied."
	default:
		return "Something went wrong while searching."
	}
}

func prepend(s string, list []string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, s)
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

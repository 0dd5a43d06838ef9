package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
)

// ctxCheckEvery is how many records are evaluated between context checks.
const ctxCheckEvery = 64

const dateLayout = "2006-01-02"

// Engine evaluates Criteria against records.
type Engine struct {
	resolver StatusResolver
	location *time.Location
	logger   *zap.Logger
}

// NewEngine creates a filter engine. resolver may be nil.
func NewEngine(resolver StatusResolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{resolver: resolver, location: time.UTC, logger: logger}
}

// WithLocation sets the location date-only bounds are interpreted in (default UTC).
func (e *Engine) WithLocation(loc *time.Location) *Engine {
	if loc != nil {
		e.location = loc
	}
	return e
}

// Result holds the surviving positions and any non-fatal warnings.
type Result struct {
	Positions []int
	Warnings  []string
}

// Apply returns the records matching c, in input order.
func (e *Engine) Apply(ctx context.Context, records []record.Record, c Criteria) ([]record.Record, error) {
	res, err := e.Filter(ctx, records, nil, c)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, len(res.Positions))
	for i, pos := range res.Positions {
		out[i] = records[pos]
	}
	return out, nil
}

// Filter evaluates c over the given positions of records (nil means all records) and returns
// the matching positions in input order.
func (e *Engine) Filter(ctx context.Context, records []record.Record, candidates []int, c Criteria) (Result, error) {
	preds, warnings := e.compile(c)
	if len(warnings) > 0 {
		e.logger.Warn("filter criteria partially ignored", zap.Strings("warnings", warnings))
	}

	if candidates == nil {
		candidates = make([]int, len(records))
		for i := range records {
			candidates[i] = i
		}
	}
	if len(preds) == 0 {
		return Result{Positions: candidates, Warnings: warnings}, nil
	}

	ev := &evaluation{engine: e, cache: make(map[string]bool)}
	out := make([]int, 0, len(candidates))
	for n, pos := range candidates {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf("filter records: %w", err)
			}
		}
		if pos < 0 || pos >= len(records) {
			return Result{}, failure.Newf(failure.KindFilter, failure.StageFiltering,
				"candidate position %d outside %d records", pos, len(records))
		}
		ok, err := ev.matches(ctx, records[pos], preds)
		if err != nil {
			return Result{}, failure.AtStage(failure.StageFiltering, err)
		}
		if ok {
			out = append(out, pos)
		}
	}
	return Result{Positions: out, Warnings: warnings}, nil
}

type predicate func(ctx context.Context, ev *evaluation, r record.Record) (bool, error)

type evaluation struct {
	engine *Engine
	cache  map[string]bool
}

func (ev *evaluation) matches(ctx context.Context, r record.Record, preds []predicate) (bool, error) {
	for _, p := range preds {
		ok, err := p(ctx, ev, r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// resolveStatus walks explicit status, alias attributes, then the external resolver.
func (ev *evaluation) resolveStatus(ctx context.Context, r record.Record) (valid, ok bool, err error) {
	if v, ok := r.Status().Bool(); ok {
		return v, true, nil
	}
	if v, ok := aliasStatus(r); ok {
		return v, true, nil
	}
	if ev.engine.resolver == nil || r.Phone() == "" {
		return false, false, nil
	}
	if v, ok := ev.cache[r.Phone()]; ok {
		return v, true, nil
	}
	v, err := ev.engine.resolver.Resolve(ctx, r.Phone())
	if err != nil {
		return false, false, fmt.Errorf("resolve status for %q: %w", r.ID(), err)
	}
	ev.cache[r.Phone()] = v
	return v, true, nil
}

func (e *Engine) compile(c Criteria) ([]predicate, []string) {
	var preds []predicate
	var warnings []string

	text := func(want string, get func(record.Record) string) {
		w := strings.ToLower(strings.TrimSpace(want))
		if w == "" {
			return
		}
		preds = append(preds, func(_ context.Context, _ *evaluation, r record.Record) (bool, error) {
			return strings.Contains(strings.ToLower(get(r)), w), nil
		})
	}

	text(c.ID, record.Record.ID)
	if p := phonePredicate(c.Phone); p != nil {
		preds = append(preds, p)
	}
	text(c.CompanyName, record.Record.CompanyName)
	text(c.Address, record.Record.PhysicalAddress)
	text(c.Email, record.Record.Email)
	text(c.Website, record.Record.Website)

	switch want := strings.ToLower(strings.TrimSpace(c.Status)); want {
	case StatusValid, StatusInvalid:
		wantValid := want == StatusValid
		preds = append(preds, func(ctx context.Context, ev *evaluation, r record.Record) (bool, error) {
			v, ok, err := ev.resolveStatus(ctx, r)
			if err != nil || !ok {
				return false, err
			}
			return v == wantValid, nil
		})
	}

	if !c.DateRange.IsZero() {
		p, err := e.datePredicate(*c.DateRange)
		if err != nil {
			warnings = append(warnings, err.Error())
		} else {
			preds = append(preds, p)
		}
	}
	return preds, warnings
}

// phonePredicate compares digits only; a criterion without digits falls back to substring.
func phonePredicate(want string) predicate {
	w := strings.TrimSpace(want)
	if w == "" {
		return nil
	}
	wd := DigitsOnly(w)
	if wd == "" {
		lw := strings.ToLower(w)
		return func(_ context.Context, _ *evaluation, r record.Record) (bool, error) {
			return strings.Contains(strings.ToLower(r.Phone()), lw), nil
		}
	}
	return func(_ context.Context, _ *evaluation, r record.Record) (bool, error) {
		return strings.Contains(DigitsOnly(r.Phone()), wd), nil
	}
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func (e *Engine) datePredicate(d DateRange) (predicate, error) {
	var start, end time.Time
	var err error

	if s := strings.TrimSpace(d.Start); s != "" {
		if start, _, err = e.parseDate(s); err != nil {
			return nil, fmt.Errorf("date range ignored: start %q: %w", s, err)
		}
	}
	if s := strings.TrimSpace(d.End); s != "" {
		if end, _, err = e.parseDate(s); err != nil {
			return nil, fmt.Errorf("date range ignored: end %q: %w", s, err)
		}
		y, m, day := end.Date()
		end = time.Date(y, m, day, 23, 59, 59, int(time.Second-time.Nanosecond), end.Location())
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, fmt.Errorf("date range ignored: start %q is after end %q", d.Start, d.End)
	}

	return func(_ context.Context, _ *evaluation, r record.Record) (bool, error) {
		if !r.HasTimestamp() {
			return false, nil
		}
		ts := r.Timestamp()
		if !start.IsZero() && ts.Before(start) {
			return false, nil
		}
		if !end.IsZero() && ts.After(end) {
			return false, nil
		}
		return true, nil
	}, nil
}

func (e *Engine) parseDate(s string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateLayout, s, e.location); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("want %s or RFC 3339", dateLayout)
	}
	return t, false, nil
}

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/rank"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/index"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
)

const (
	ctxCheckEvery = 64
	minIndexedLen = 3
)

// matched is the output of the parse, filter and match stages.
type matched struct {
	snap      *index.Snapshot
	parsed    query.Parsed
	positions []int
	warnings  []string
}

// tracker records the stage the pipeline goroutine is in.
type tracker struct {
	stage atomic.Value
}

func (t *tracker) set(s failure.Stage) { t.stage.Store(s) }

func (t *tracker) get() failure.Stage {
	s, _ := t.stage.Load().(failure.Stage)
	return s
}

// Execute runs the pipeline once under req's time budget. It implements recovery.Executor.
func (s *Service) Execute(ctx context.Context, req request.Request, a recovery.Attempt) (*result.SearchResult, error) {
	return timed(ctx, req.Timeout(), func(ctx context.Context, tr *tracker) (*result.SearchResult, error) {
		m, err := s.match(ctx, req, a, tr)
		if err != nil {
			return nil, err
		}
		return s.finish(req, m, tr)
	})
}

// timed races fn against a timeout. The first to settle wins; a late fn result is discarded.
func timed[T any](ctx context.Context, d time.Duration, fn func(context.Context, *tracker) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	tr := &tracker{}
	tr.set(failure.StageParsing)
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx, tr)
		done <- outcome{v: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, failure.New(failure.KindTimeout, tr.get(), fmt.Errorf("search exceeded %v: %w", d, err))
		}
		return zero, fmt.Errorf("search: %w", err)
	}
}

// guard runs one stage, tagging its error and converting a panic into a tagged failure.
func guard(tr *tracker, stage failure.Stage, fn func() error) (err error) {
	tr.set(stage)
	defer func() {
		if v := recover(); v != nil {
			err = failure.New(panicKind(stage), stage, &failure.PanicError{Value: v})
		}
	}()
	return failure.AtStage(stage, fn())
}

func panicKind(stage failure.Stage) failure.Kind {
	switch stage {
	case failure.StageFiltering:
		return failure.KindFilter
	case failure.StageMatching:
		return failure.KindIndex
	default:
		return failure.KindUnknown
	}
}

func (s *Service) match(ctx context.Context, req request.Request, a recovery.Attempt, tr *tracker) (*matched, error) {
	m := &matched{snap: s.index.Current()}

	err := guard(tr, failure.StageParsing, func() error {
		p, err := parse(req, a)
		m.parsed = p
		return err
	})
	if err != nil {
		return nil, err
	}

	err = guard(tr, failure.StageFiltering, func() error {
		res, err := s.filters.Filter(ctx, m.snap.Records, nil, req.Criteria())
		if err != nil {
			return err
		}
		m.positions, m.warnings = res.Positions, res.Warnings
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = guard(tr, failure.StageMatching, func() error {
		positions, err := s.lookup(ctx, m.snap, m.parsed, m.positions, a)
		m.positions = positions
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parse(req request.Request, a recovery.Attempt) (query.Parsed, error) {
	text := strings.TrimSpace(req.Query())
	if a.Literal {
		p := query.NewContains(text)
		if p.Kind() == query.Empty {
			return p, failure.New(failure.KindPatternInvalid, failure.StageParsing, query.ErrEmptyPattern)
		}
		return p, nil
	}
	if text == "" {
		if req.Criteria().IsEmpty() {
			return query.Parse(""), failure.New(failure.KindPatternInvalid, failure.StageParsing, query.ErrEmptyPattern)
		}
		// filter-only search
		return query.Parse(""), nil
	}
	if v := query.ValidatePattern(text); !v.Valid {
		return query.Parsed{}, failure.New(failure.KindPatternInvalid, failure.StageParsing, v.Error)
	}
	return query.Parse(text), nil
}

// lookup narrows the filtered positions to those matching p, in snapshot order.
func (s *Service) lookup(
	ctx context.Context, snap *index.Snapshot, p query.Parsed, filtered []int, a recovery.Attempt,
) ([]int, error) {
	var (
		hits   map[int]struct{}
		accept func(record.Record) bool
	)

	switch p.Kind() {
	case query.Empty:
		accept = func(record.Record) bool { return true }
	case query.Wildcard:
		prefix := strings.ToLower(p.Prefix())
		accept = func(r record.Record) bool { return strings.HasPrefix(strings.ToLower(r.ID()), prefix) }
		if prefix == "" {
			break
		}
		if !a.BypassIndex && utf8.RuneCountInString(prefix) >= minIndexedLen {
			positions, err := snap.Lookup(prefix, index.FieldID)
			if err != nil {
				return nil, err
			}
			hits = toSet(positions)
		}
	case query.Range:
		lo, hi, ok := p.Bounds()
		if !ok {
			return nil, failure.New(failure.KindPatternInvalid, failure.StageMatching, query.ErrRangeNotNumeric)
		}
		accept = func(r record.Record) bool {
			n, ok := query.ExtractNumericID(r.ID())
			return ok && n >= lo && n <= hi
		}
	case query.Contains:
		phrase := p.Phrase()
		accept = func(r record.Record) bool { return containsPhrase(r, phrase) }
		if !a.BypassIndex && utf8.RuneCountInString(phrase) >= minIndexedLen {
			positions, err := snap.Lookup(phrase)
			if err != nil {
				return nil, err
			}
			hits = toSet(positions)
		}
	default:
		return nil, failure.Newf(failure.KindUnknown, failure.StageMatching, "unsupported query kind %q", p.Kind())
	}

	out := make([]int, 0, len(filtered))
	for n, pos := range filtered {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("match records: %w", err)
			}
		}
		if hits != nil {
			if _, ok := hits[pos]; !ok {
				continue
			}
		}
		if pos < 0 || pos >= len(snap.Records) {
			return nil, failure.Newf(failure.KindIndex, failure.StageMatching,
				"position %d outside snapshot of %d records", pos, len(snap.Records))
		}
		if accept(snap.Records[pos]) {
			out = append(out, pos)
			if a.MaxResults > 0 && len(out) >= a.MaxResults {
				break
			}
		}
	}
	return out, nil
}

func containsPhrase(r record.Record, phrase string) bool {
	for _, v := range r.SearchableFields() {
		if v != "" && strings.Contains(strings.ToLower(v), phrase) {
			return true
		}
	}
	return false
}

func toSet(positions []int) map[int]struct{} {
	set := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		set[p] = struct{}{}
	}
	return set
}

// finish ranks the matched records and cuts the requested page.
func (s *Service) finish(req request.Request, m *matched, tr *tracker) (*result.SearchResult, error) {
	var ranked []record.Record
	err := guard(tr, failure.StageRanking, func() error {
		ranked = s.rankAll(req, m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	pg := result.Paginate(len(ranked), req.Page(), req.PageSize())
	if req.Unpaged() {
		pg = result.Paginate(len(ranked), 1, max(len(ranked), 1))
	}
	res := &result.SearchResult{
		Records:    pg.Window(ranked),
		Total:      len(ranked),
		Query:      req.Query(),
		Kind:       m.parsed.Kind(),
		Mode:       req.Mode(),
		State:      result.StateDone,
		Pagination: pg,
		Warnings:   m.warnings,
	}
	if req.Highlight() && m.parsed.Kind() == query.Contains {
		res.Highlights = m.parsed.Terms()
	}
	return res, nil
}

func (s *Service) rankAll(req request.Request, m *matched) []record.Record {
	recs := make([]record.Record, len(m.positions))
	for i, pos := range m.positions {
		recs[i] = m.snap.Records[pos]
	}
	if req.Mode() == mode.IDPattern && m.parsed.Kind() == query.Wildcard {
		return rank.ExactIDFirst(recs, m.parsed.Prefix())
	}
	return rank.Rank(recs, m.parsed)
}

// compile-time check
var (
	_ recovery.Executor = (*Service)(nil)
	_ RecordFilter      = (*filter.Engine)(nil)
)

package result

import (
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/failure"
	"github.com/kailas-cloud/contactdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
)

// State is the pipeline position a search ended in.
type State string

// Pipeline states.
const (
	StateParsing   State = "parsing"
	StateFiltering State = "filtering"
	StateMatching  State = "matching"
	StateRanking   State = "ranking"
	StateDone      State = "done"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// StateOf maps a failure stage to its pipeline state. An unknown stage maps to StateFailed.
func StateOf(s failure.Stage) State {
	switch s {
	case failure.StageParsing:
		return StateParsing
	case failure.StageFiltering:
		return StateFiltering
	case failure.StageMatching:
		return StateMatching
	case failure.StageRanking:
		return StateRanking
	}
	return StateFailed
}

// Pagination describes the page returned out of the full ranked set.
type Pagination struct {
	Page       int
	PageSize   int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Paginate computes pagination for total results. page and size must be positive.
func Paginate(total, page, size int) Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Pagination{
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// Window returns the records on page p.
func (p Pagination) Window(records []record.Record) []record.Record {
	if p.PageSize <= 0 || p.Page <= 0 {
		return nil
	}
	start := (p.Page - 1) * p.PageSize
	if start >= len(records) {
		return []record.Record{}
	}
	end := min(start+p.PageSize, len(records))
	return records[start:end]
}

// ErrorInfo annotates a result produced by recovery.
type ErrorInfo struct {
	Kind           failure.Kind
	Strategy       string
	Message        string
	CorrectedQuery string
	// FailedAt is the pipeline state the original failure happened in, when known.
	FailedAt State
	// Fallback marks a result from graceful fallback or a degraded strategy.
	Fallback bool
	// Recovered marks a result obtained from a successful recovery attempt.
	Recovered bool
}

// SearchResult is the outcome of one search call. It is built fresh per call.
type SearchResult struct {
	Records       []record.Record
	Total         int
	Query         string
	Kind          query.Kind
	Mode          mode.Mode
	State         State
	ExecutionTime time.Duration
	Suggestions   []string
	Pagination    Pagination
	Highlights    []string
	Warnings      []string
	Error         *ErrorInfo
}

// FinalState is the state a search ends in after a failure of kind: timeouts end timed_out whether or not
// recovery produced records, other failures end failed unless recovery completed a pipeline run.
func FinalState(kind failure.Kind, recovered bool) State {
	switch {
	case kind == failure.KindTimeout:
		return StateTimedOut
	case recovered:
		return StateDone
	default:
		return StateFailed
	}
}

// Failed reports whether the result carries an error annotation.
func (r *SearchResult) Failed() bool { return r.Error != nil }

// IsFallback reports whether the result came from a degraded path.
func (r *SearchResult) IsFallback() bool { return r.Error != nil && r.Error.Fallback }

// Stats is the summary of a search handed to the history collaborator.
type Stats struct {
	Total         int
	ExecutionTime time.Duration
	Kind          query.Kind
	Failed        bool
	Fallback      bool
}

// Stats summarizes the result.
func (r *SearchResult) Stats() Stats {
	return Stats{
		Total:         r.Total,
		ExecutionTime: r.ExecutionTime,
		Kind:          r.Kind,
		Failed:        r.Failed(),
		Fallback:      r.IsFallback(),
	}
}

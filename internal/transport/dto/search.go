package dto

import (
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
)

// Filters is the wire form of field criteria.
type Filters struct {
	ID          string     `json:"id,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	Address     string     `json:"address,omitempty"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Status      string     `json:"status,omitempty"`
	DateRange   *DateRange `json:"date_range,omitempty"`
}

// DateRange bounds record timestamps (YYYY-MM-DD or RFC 3339).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Criteria converts filters to domain criteria.
func (f *Filters) Criteria() filter.Criteria {
	if f == nil {
		return filter.Criteria{}
	}
	c := filter.Criteria{
		ID:          f.ID,
		Phone:       f.Phone,
		CompanyName: f.CompanyName,
		Address:     f.Address,
		Email:       f.Email,
		Website:     f.Website,
		Status:      f.Status,
	}
	if f.DateRange != nil {
		c.DateRange = &filter.DateRange{Start: f.DateRange.Start, End: f.DateRange.End}
	}
	return c
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query     string   `json:"query"`
	Filters   *Filters `json:"filters,omitempty"`
	TimeoutMs int      `json:"timeout_ms,omitempty"`
	Page      int      `json:"page,omitempty"`
	PageSize  int      `json:"page_size,omitempty"`
	Highlight bool     `json:"highlight,omitempty"`
}

// Pagination is the wire form of result.Pagination.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// SearchResult is the response of a search.
type SearchResult struct {
	Records         []Record   `json:"records"`
	Total           int        `json:"total"`
	Query           string     `json:"query"`
	Kind            string     `json:"kind,omitempty"`
	Mode            string     `json:"mode,omitempty"`
	State           string     `json:"state"`
	ExecutionTimeMs float64    `json:"execution_time_ms"`
	Suggestions     []string   `json:"suggestions,omitempty"`
	Pagination      Pagination `json:"pagination"`
	Highlights      []string   `json:"highlights,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	Error           bool       `json:"error"`
	Fallback        bool       `json:"fallback"`
	ErrorInfo       *ErrorInfo `json:"error_info,omitempty"`
}

// ErrorInfo is the wire form of result.ErrorInfo.
type ErrorInfo struct {
	Kind           string `json:"kind"`
	Strategy       string `json:"strategy,omitempty"`
	Message        string `json:"message"`
	CorrectedQuery string `json:"corrected_query,omitempty"`
	FailedAt       string `json:"failed_at,omitempty"`
	Recovered      bool   `json:"recovered"`
}

// SearchResultFromDomain converts a search result.
func SearchResultFromDomain(r *result.SearchResult) SearchResult {
	out := SearchResult{
		Records:         RecordsFromDomain(r.Records),
		Total:           r.Total,
		Query:           r.Query,
		Kind:            string(r.Kind),
		Mode:            string(r.Mode),
		State:           string(r.State),
		ExecutionTimeMs: float64(r.ExecutionTime.Microseconds()) / 1000,
		Suggestions:     r.Suggestions,
		Pagination: Pagination{
			Page:       r.Pagination.Page,
			PageSize:   r.Pagination.PageSize,
			TotalPages: r.Pagination.TotalPages,
			HasNext:    r.Pagination.HasNext,
			HasPrev:    r.Pagination.HasPrev,
		},
		Highlights: r.Highlights,
		Warnings:   r.Warnings,
		Error:      r.Failed(),
		Fallback:   r.IsFallback(),
	}
	out.ErrorInfo = ErrorInfoFromDomain(r.Error)
	return out
}

// ErrorInfoFromDomain converts an error annotation; nil stays nil.
func ErrorInfoFromDomain(e *result.ErrorInfo) *ErrorInfo {
	if e == nil {
		return nil
	}
	return &ErrorInfo{
		Kind:           string(e.Kind),
		Strategy:       e.Strategy,
		Message:        e.Message,
		CorrectedQuery: e.CorrectedQuery,
		FailedAt:       string(e.FailedAt),
		Recovered:      e.Recovered,
	}
}

// ErrorStats is the response of GET /stats/errors.
type ErrorStats struct {
	Total           int             `json:"total"`
	ErrorsByType    map[string]int  `json:"errors_by_type"`
	MostCommonError string          `json:"most_common_error,omitempty"`
	LastHour        int             `json:"last_hour"`
	LastDay         int             `json:"last_day"`
	Recovered       int             `json:"recovered"`
	Recent          []RecoveryEntry `json:"recent"`
}

// RecoveryEntry is one recovery attempt.
type RecoveryEntry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	Strategy string    `json:"strategy"`
	Query    string    `json:"query"`
	Attempt  int       `json:"attempt"`
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
}

// ErrorStatsFromDomain converts recovery statistics.
func ErrorStatsFromDomain(s recovery.Stats) ErrorStats {
	out := ErrorStats{
		Total:           s.Total,
		ErrorsByType:    make(map[string]int, len(s.ErrorsByType)),
		MostCommonError: string(s.MostCommonError),
		LastHour:        s.LastHour,
		LastDay:         s.LastDay,
		Recovered:       s.Recovered,
		Recent:          make([]RecoveryEntry, len(s.Recent)),
	}
	for k, v := range s.ErrorsByType {
		out.ErrorsByType[string(k)] = v
	}
	for i, e := range s.Recent {
		out.Recent[i] = RecoveryEntry{
			At:       e.At.UTC(),
			Kind:     string(e.Kind),
			Strategy: string(e.Strategy),
			Query:    e.Query,
			Attempt:  e.Attempt,
			Success:  e.Success,
			Message:  e.Message,
		}
	}
	return out
}

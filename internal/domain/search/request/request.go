package request

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/mode"
)

// Default search limits.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Options are the caller-tunable knobs of one search call. Zero values take the defaults.
type Options struct {
	Timeout   time.Duration
	Highlight bool
	Page      int
	PageSize  int
	// Unpaged returns every match in one window; PageSize is ignored.
	Unpaged bool
}

// Limits are the configured defaults and caps applied to Options.
type Limits struct {
	DefaultTimeout  time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{DefaultTimeout: DefaultTimeout, DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}
}

// Request is a normalized search call.
type Request struct {
	query      string
	searchMode mode.Mode
	criteria   filter.Criteria
	timeout    time.Duration
	page       int
	pageSize   int
	highlight  bool
	unpaged    bool
}

// New validates and normalizes search parameters.
// Defaults: mode=standard, page=1, pageSize and timeout from limits. PageSize is clamped to the max.
func New(query string, m mode.Mode, criteria filter.Criteria, opts Options, limits Limits) (Request, error) {
	if m == "" {
		m = mode.Standard
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode: %q", m)
	}
	if opts.Timeout < 0 {
		return Request{}, fmt.Errorf("timeout must not be negative")
	}
	if limits.DefaultTimeout <= 0 {
		limits.DefaultTimeout = DefaultTimeout
	}
	if limits.MaxPageSize <= 0 {
		limits.MaxPageSize = MaxPageSize
	}
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = DefaultPageSize
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = limits.DefaultTimeout
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = limits.DefaultPageSize
	}
	if size > limits.MaxPageSize {
		size = limits.MaxPageSize
	}

	return Request{
		query:      query,
		searchMode: m,
		criteria:   criteria,
		timeout:    timeout,
		page:       page,
		pageSize:   size,
		highlight:  opts.Highlight,
		unpaged:    opts.Unpaged,
	}, nil
}

// Query returns the raw query text.
func (r Request) Query() string { return r.query }

// Mode returns the entry point.
func (r Request) Mode() mode.Mode { return r.searchMode }

// Criteria returns the field filters.
func (r Request) Criteria() filter.Criteria { return r.criteria }

// Timeout returns the time budget.
func (r Request) Timeout() time.Duration { return r.timeout }

// Page returns the 1-based page number.
func (r Request) Page() int { return r.page }

// PageSize returns the number of records per page.
func (r Request) PageSize() int { return r.pageSize }

// Unpaged reports whether the result should carry all matches instead of one page.
func (r Request) Unpaged() bool { return r.unpaged }

// Highlight reports whether highlight terms were requested.
func (r Request) Highlight() bool { return r.highlight }

// WithQuery returns a copy with a different query.
func (r Request) WithQuery(q string) Request {
	r.query = q
	return r
}

// WithCriteria returns a copy with different criteria.
func (r Request) WithCriteria(c filter.Criteria) Request {
	r.criteria = c
	return r
}

// WithTimeout returns a copy with a different budget.
func (r Request) WithTimeout(d time.Duration) Request {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Package query classifies raw search-box input into one of the supported query shapes.
//
// Classification is total: every string maps to exactly one of Empty, Wildcard, Range or Contains.
// A trailing '*' wins over a range separator, and anything that is neither is a free-text Contains query.
package query

import (
	"regexp"
	"strings"
)

// Kind is the shape of a parsed query.
type Kind string

// Query kinds.
const (
	Empty    Kind = "empty"
	Wildcard Kind = "wildcard"
	Range    Kind = "range"
	Contains Kind = "contains"
)

// rangeSep matches the case-insensitive " to " separator of a range query.
var rangeSep = regexp.MustCompile(`(?i) to `)

// Parsed is a classified query (immutable value object).
type Parsed struct {
	kind   Kind
	raw    string
	prefix string
	start  string
	end    string
	terms  []string
}

// Parse trims raw and classifies it.
func Parse(raw string) Parsed {
	q := strings.TrimSpace(raw)
	if q == "" {
		return Parsed{kind: Empty, raw: raw}
	}

	if strings.HasSuffix(q, "*") {
		return Parsed{kind: Wildcard, raw: raw, prefix: strings.TrimSpace(strings.TrimSuffix(q, "*"))}
	}

	if loc := rangeSep.FindStringIndex(q); loc != nil {
		start := strings.TrimSpace(q[:loc[0]])
		end := strings.TrimSpace(q[loc[1]:])
		if start != "" && end != "" {
			return Parsed{kind: Range, raw: raw, start: start, end: end}
		}
	}

	return Parsed{kind: Contains, raw: raw, terms: strings.Fields(q)}
}

// NewWildcard builds a wildcard query for prefix.
func NewWildcard(prefix string) Parsed {
	p := strings.TrimSpace(prefix)
	return Parsed{kind: Wildcard, raw: p + "*", prefix: p}
}

// NewRange builds a range query from two endpoints.
func NewRange(start, end string) Parsed {
	s, e := strings.TrimSpace(start), strings.TrimSpace(end)
	return Parsed{kind: Range, raw: s + " to " + e, start: s, end: e}
}

// NewContains builds a free-text query matched as one phrase regardless of its shape.
func NewContains(text string) Parsed {
	q := strings.TrimSpace(text)
	if q == "" {
		return Parsed{kind: Empty, raw: text}
	}
	return Parsed{kind: Contains, raw: text, terms: strings.Fields(q)}
}

// Kind returns the query shape.
func (p Parsed) Kind() Kind { return p.kind }

// Raw returns the input as given.
func (p Parsed) Raw() string { return p.raw }

// Text returns the trimmed input.
func (p Parsed) Text() string { return strings.TrimSpace(p.raw) }

// Prefix returns the wildcard prefix.
func (p Parsed) Prefix() string { return p.prefix }

// Start returns the first range endpoint.
func (p Parsed) Start() string { return p.start }

// End returns the second range endpoint.
func (p Parsed) End() string { return p.end }

// Terms returns the whitespace-separated terms of a Contains query, used for highlighting.
func (p Parsed) Terms() []string { return p.terms }

// Phrase returns the trimmed, lower-cased text a Contains query is matched with as one substring.
// Internal whitespace is kept as typed.
func (p Parsed) Phrase() string {
	if p.kind != Contains {
		return ""
	}
	return strings.ToLower(p.Text())
}

// Bounds returns the inclusive numeric bounds of a Range query, ordered low to high.
// ok is false when either endpoint has no trailing integer.
func (p Parsed) Bounds() (lo, hi int64, ok bool) {
	if p.kind != Range {
		return 0, 0, false
	}
	a, okA := ExtractNumericID(p.start)
	b, okB := ExtractNumericID(p.end)
	if !okA || !okB {
		return 0, 0, false
	}
	if a > b {
		a, b = b, a
	}
	return a, b, true
}

// ExtractNumericID returns the trailing run of decimal digits in s.
// ok is false when s does not end in a digit or the number overflows int64.
func ExtractNumericID(s string) (int64, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	digits := s[i:]
	if digits == "" {
		return 0, false
	}

	const maxInt64 = int64(^uint64(0) >> 1)
	var n int64
	for _, c := range []byte(digits) {
		d := int64(c - '0')
		if n > (maxInt64-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}
	return n, true
}

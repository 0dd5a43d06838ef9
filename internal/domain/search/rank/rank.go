// Package rank scores and orders candidate records against a parsed query.
package rank

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
)

// Score weights. Criteria that hold independently accumulate.
const (
	ExactID            = 100
	ExactPhone         = 90
	ExactCompany       = 80
	PrefixID           = 50
	PrefixCompany      = 40
	SubstringID        = 20
	SubstringCompany   = 15
	SubstringSecondary = 10
)

// Score returns the relevance of r for q. Only contains queries are scored.
func Score(r record.Record, q query.Parsed) int {
	if q.Kind() != query.Contains {
		return 0
	}
	phrase := q.Phrase()
	if phrase == "" {
		return 0
	}

	id := strings.ToLower(r.ID())
	company := strings.ToLower(r.CompanyName())

	score := 0
	if id == phrase {
		score += ExactID
	}
	if strings.ToLower(r.Phone()) == phrase {
		score += ExactPhone
	}
	if company != "" && company == phrase {
		score += ExactCompany
	}
	if strings.HasPrefix(id, phrase) {
		score += PrefixID
	}
	if strings.HasPrefix(company, phrase) {
		score += PrefixCompany
	}
	if strings.Contains(id, phrase) {
		score += SubstringID
	}
	if strings.Contains(company, phrase) {
		score += SubstringCompany
	}
	for _, v := range []string{r.PhysicalAddress(), r.Email(), r.Website()} {
		if strings.Contains(strings.ToLower(v), phrase) {
			score += SubstringSecondary
		}
	}
	return score
}

// Rank returns records ordered by descending score. Ties keep their input order; non-contains
// queries return a copy in input order.
func Rank(records []record.Record, q query.Parsed) []record.Record {
	out := slices.Clone(records)
	if q.Kind() != query.Contains || len(out) < 2 {
		return out
	}

	type scored struct {
		r     record.Record
		score int
	}
	items := make([]scored, len(out))
	for i, r := range out {
		items[i] = scored{r: r, score: Score(r, q)}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		return b.score - a.score
	})
	for i := range items {
		out[i] = items[i].r
	}
	return out
}

// ExactIDFirst moves records whose ID equals id (case-insensitive) to the front, keeping the
// relative order of both groups.
func ExactIDFirst(records []record.Record, id string) []record.Record {
	want := strings.ToLower(strings.TrimSpace(id))
	out := make([]record.Record, 0, len(records))
	var rest []record.Record
	for _, r := range records {
		if strings.ToLower(r.ID()) == want {
			out = append(out, r)
		} else {
			rest = append(rest, r)
		}
	}
	return append(out, rest...)
}

package index

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
)

type positions map[int]struct{}

type postings map[string]positions

// minOverlayTerms is the overlay size below which incremental adds never compact.
const minOverlayTerms = 256

// Index is an immutable set of per-field postings maps. Incremental adds write the posting sets
// they touch into a per-field overlay that shadows the base maps; the overlay is folded into the
// base once it outgrows a quarter of the field's terms.
type Index struct {
	fields  map[Field]postings
	overlay map[Field]postings
	size    int
}

// Stats summarizes index contents.
type Stats struct {
	Size     int
	Terms    map[Field]int
	Postings int
}

// Empty returns an index with no records.
func Empty() *Index {
	fields := make(map[Field]postings, len(Fields))
	for _, f := range Fields {
		fields[f] = postings{}
	}
	return &Index{fields: fields}
}

// buildField indexes every record under one field.
func buildField(f Field, records []record.Record) postings {
	p := make(postings)
	for pos, r := range records {
		for _, t := range termsOf(valueOf(f, r)) {
			set, ok := p[t]
			if !ok {
				set = make(positions, 1)
				p[t] = set
			}
			set[pos] = struct{}{}
		}
	}
	return p
}

// Size returns the number of record positions the index covers.
func (ix *Index) Size() int { return ix.size }

// Search returns the positions whose field value equals term or, for terms of three or more
// characters, contains it. Positions are ascending. Unknown fields yield nil.
func (ix *Index) Search(term string, f Field) []int {
	if _, ok := ix.fields[f]; !ok {
		return nil
	}
	t := normalize(term)
	if t == "" {
		return nil
	}

	hits := make(positions)
	for pos := range ix.get(f, t) {
		hits[pos] = struct{}{}
	}
	if utf8.RuneCountInString(t) >= ngramSize {
		ix.each(f, func(key string, set positions) {
			if strings.Contains(key, t) {
				for pos := range set {
					hits[pos] = struct{}{}
				}
			}
		})
	}
	return sortedPositions(hits)
}

// get returns the posting set of t, overlay first.
func (ix *Index) get(f Field, t string) positions {
	if set, ok := ix.overlay[f][t]; ok {
		return set
	}
	return ix.fields[f][t]
}

// each visits every live term of f once.
func (ix *Index) each(f Field, fn func(t string, set positions)) {
	over := ix.overlay[f]
	for t, set := range over {
		fn(t, set)
	}
	for t, set := range ix.fields[f] {
		if _, shadowed := over[t]; !shadowed {
			fn(t, set)
		}
	}
}

func (ix *Index) termCount(f Field) int {
	n := len(ix.fields[f])
	for t := range ix.overlay[f] {
		if _, ok := ix.fields[f][t]; !ok {
			n++
		}
	}
	return n
}

// MultiSearch unions Search across fields. No fields means all fields.
func (ix *Index) MultiSearch(term string, fields ...Field) []int {
	if len(fields) == 0 {
		fields = Fields
	}
	hits := make(positions)
	for _, f := range fields {
		for _, pos := range ix.Search(term, f) {
			hits[pos] = struct{}{}
		}
	}
	return sortedPositions(hits)
}

// WithRecord returns a copy of the index with r indexed at pos. Only the posting sets the
// record touches are copied, plus the overlay of earlier adds; the receiver is left untouched.
func (ix *Index) WithRecord(pos int, r record.Record) *Index {
	next := &Index{fields: ix.fields, overlay: make(map[Field]postings, len(Fields)), size: ix.size}
	grown := false
	for _, f := range Fields {
		layer := maps.Clone(ix.overlay[f])
		if layer == nil {
			layer = postings{}
		}
		for _, t := range termsOf(valueOf(f, r)) {
			set := maps.Clone(ix.get(f, t))
			if set == nil {
				set = make(positions, 1)
			}
			set[pos] = struct{}{}
			layer[t] = set
		}
		next.overlay[f] = layer
		if len(layer) > max(minOverlayTerms, len(ix.fields[f])/4) {
			grown = true
		}
	}
	if pos+1 > next.size {
		next.size = pos + 1
	}
	if grown {
		return next.compact(false)
	}
	return next
}

// Optimize returns a compacted copy without empty posting sets and the number of terms dropped.
func (ix *Index) Optimize() (*Index, int) {
	before := 0
	for _, f := range Fields {
		before += ix.termCount(f)
	}
	next := ix.compact(true)
	after := 0
	for _, f := range Fields {
		after += len(next.fields[f])
	}
	return next, before - after
}

// compact folds the overlay into fresh base maps, optionally dropping empty posting sets.
func (ix *Index) compact(dropEmpty bool) *Index {
	next := &Index{fields: make(map[Field]postings, len(ix.fields)), size: ix.size}
	for f := range ix.fields {
		p := make(postings, ix.termCount(f))
		ix.each(f, func(t string, set positions) {
			if dropEmpty && len(set) == 0 {
				return
			}
			p[t] = set
		})
		next.fields[f] = p
	}
	return next
}

// Stats returns term and posting counts.
func (ix *Index) Stats() Stats {
	s := Stats{Size: ix.size, Terms: make(map[Field]int, len(ix.fields))}
	for f := range ix.fields {
		s.Terms[f] = ix.termCount(f)
		ix.each(f, func(_ string, set positions) { s.Postings += len(set) })
	}
	return s
}

// Terms returns the postings of a field as sorted position lists.
func (ix *Index) Terms(f Field) map[string][]int {
	out := make(map[string][]int, ix.termCount(f))
	ix.each(f, func(t string, set positions) { out[t] = sortedPositions(set) })
	return out
}

// Equal reports whether two indexes hold the same postings, whatever their layering.
func (ix *Index) Equal(other *Index) bool {
	if ix.size != other.size {
		return false
	}
	for _, f := range Fields {
		if ix.termCount(f) != other.termCount(f) {
			return false
		}
		equal := true
		ix.each(f, func(t string, set positions) {
			if equal && !maps.Equal(set, other.get(f, t)) {
				equal = false
			}
		})
		if !equal {
			return false
		}
	}
	return true
}

func sortedPositions(set positions) []int {
	out := make([]int, 0, len(set))
	for pos := range set {
		out = append(out, pos)
	}
	slices.Sort(out)
	return out
}

package rank

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
)

func ids(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func TestScore_Accumulates(t *testing.T) {
	q := query.Parse("AB")
	tests := []struct {
		id   string
		want int
	}{
		{"AB", 170},
		{"ABX", 70},
		{"XAB", 20},
		{"ZZZ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := Score(record.Reconstruct(tt.id, ""), q); got != tt.want {
				t.Errorf("Score(%q) = %d, want %d", tt.id, got, tt.want)
			}
		})
	}
}

func TestScore_Fields(t *testing.T) {
	q := query.Parse("acme")
	r := record.Reconstruct("SG COM-1", "acme",
		record.WithCompany("Acme"),
		record.WithAddress("1 Acme Road"),
		record.WithEmail("x@acme.sg"),
		record.WithWebsite("acme.sg"))
	// phone exact 90 + company exact/prefix/substring 80+40+15 + three secondary fields 30
	if got := Score(r, q); got != 255 {
		t.Errorf("Score = %d, want 255", got)
	}
}

func TestScore_NonContainsIsZero(t *testing.T) {
	r := record.Reconstruct("AB-1", "")
	for _, raw := range []string{"", "AB*", "AB-1 to AB-3"} {
		if got := Score(r, query.Parse(raw)); got != 0 {
			t.Errorf("Score(%q) = %d, want 0", raw, got)
		}
	}
}

func TestRank_StableDescending(t *testing.T) {
	records := []record.Record{
		record.Reconstruct("XAB", ""),
		record.Reconstruct("ABX", ""),
		record.Reconstruct("AB", ""),
		record.Reconstruct("YAB", ""),
	}
	q := query.Parse("AB")

	first := Rank(records, q)
	want := []string{"AB", "ABX", "XAB", "YAB"}
	if !slices.Equal(ids(first), want) {
		t.Fatalf("Rank = %v, want %v", ids(first), want)
	}
	if again := Rank(records, q); !slices.Equal(ids(again), ids(first)) {
		t.Errorf("Rank not deterministic: %v vs %v", ids(again), ids(first))
	}
	if ids(records)[0] != "XAB" {
		t.Error("input slice reordered")
	}
}

func TestRank_PreservesOrderForOtherKinds(t *testing.T) {
	records := []record.Record{
		record.Reconstruct("AB-3", ""),
		record.Reconstruct("AB-1", ""),
	}
	for _, raw := range []string{"", "AB*", "AB-1 to AB-3"} {
		if got := Rank(records, query.Parse(raw)); !slices.Equal(ids(got), []string{"AB-3", "AB-1"}) {
			t.Errorf("Rank(%q) = %v", raw, ids(got))
		}
	}
}

func TestExactIDFirst(t *testing.T) {
	records := []record.Record{
		record.Reconstruct("SG COM-10", ""),
		record.Reconstruct("SG COM-1", ""),
		record.Reconstruct("SG COM-11", ""),
	}
	got := ExactIDFirst(records, "sg com-1")
	if !slices.Equal(ids(got), []string{"SG COM-1", "SG COM-10", "SG COM-11"}) {
		t.Errorf("ExactIDFirst = %v", ids(got))
	}
	if got := ExactIDFirst(records, "none"); !slices.Equal(ids(got), ids(records)) {
		t.Errorf("no exact match reordered: %v", ids(got))
	}
}

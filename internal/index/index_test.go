package index

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func build(t *testing.T, records ...record.Record) *Index {
	t.Helper()
	ix, err := newTestBuilder(t).Build(context.Background(), records)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix
}

func TestTermsOf(t *testing.T) {
	got := termsOf("SG COM-2001")
	for _, want := range []string{"sg com-2001", "com-2001", "sg ", "com", "200", "001"} {
		if !slices.Contains(got, want) {
			t.Errorf("termsOf missing %q in %v", want, got)
		}
	}
	if slices.Contains(got, "sg") {
		t.Error("two-letter token should not be indexed")
	}
	if termsOf("   ") != nil {
		t.Error("blank value should have no terms")
	}
}

func TestSearch_Completeness(t *testing.T) {
	ix := build(t, record.Reconstruct("SG COM-2001", ""))

	for _, term := range []string{"sg com-2001", "2001", "com", "SG COM-2001"} {
		if got := ix.Search(term, FieldID); !reflect.DeepEqual(got, []int{0}) {
			t.Errorf("Search(%q, id) = %v, want [0]", term, got)
		}
	}
}

func TestSearch_ShortTermExactOnly(t *testing.T) {
	ix := build(t,
		record.Reconstruct("AB", ""),
		record.Reconstruct("ABX", ""),
	)
	if got := ix.Search("ab", FieldID); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Search(ab) = %v, want exact hit only", got)
	}
}

func TestSearch_UnknownFieldAndBlankTerm(t *testing.T) {
	ix := build(t, record.Reconstruct("SG COM-1", ""))
	if got := ix.Search("com", Field("address")); got != nil {
		t.Errorf("unknown field: got %v", got)
	}
	if got := ix.Search("  ", FieldID); got != nil {
		t.Errorf("blank term: got %v", got)
	}
}

func TestMultiSearch_UnionsFields(t *testing.T) {
	ix := build(t,
		record.Reconstruct("SG COM-1", "9123 4567", record.WithCompany("Acme")),
		record.Reconstruct("SG COM-2", "8000 0000", record.WithEmail("hello@acme.sg")),
		record.Reconstruct("SG COM-3", "7000 0000", record.WithAddress("12 Acme Road")),
	)

	if got := ix.MultiSearch("acme", FieldCompany, FieldEmail); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("MultiSearch(company,email) = %v", got)
	}
	// Address is only reachable through fulltext.
	if got := ix.MultiSearch("acme road"); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("MultiSearch(all) = %v", got)
	}
}

func TestWithRecord_CopyOnWrite(t *testing.T) {
	base := build(t, record.Reconstruct("SG COM-1", ""))
	next := base.WithRecord(1, record.Reconstruct("SG COM-2", ""))

	if got := base.Search("com-2", FieldID); len(got) != 0 {
		t.Errorf("base index mutated: %v", got)
	}
	if got := next.Search("com", FieldID); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("next.Search(com) = %v", got)
	}
	if next.Size() != 2 || base.Size() != 1 {
		t.Errorf("sizes: base %d next %d", base.Size(), next.Size())
	}
}

func TestWithRecord_MatchesFullBuild(t *testing.T) {
	a := record.Reconstruct("SG COM-1", "9123", record.WithCompany("Acme"))
	b := record.Reconstruct("SG COM-2", "8123", record.WithWebsite("beta.sg"))

	incremental := build(t, a).WithRecord(1, b)
	full := build(t, a, b)
	if !incremental.Equal(full) {
		t.Error("incremental add should equal a full build")
	}
}

func TestWithRecord_SharesBasePostings(t *testing.T) {
	base := build(t, record.Reconstruct("SG COM-1", ""), record.Reconstruct("SG COM-2", ""))
	next := base.WithRecord(2, record.Reconstruct("XYZ-9", ""))

	if reflect.ValueOf(next.fields[FieldID]).Pointer() != reflect.ValueOf(base.fields[FieldID]).Pointer() {
		t.Error("base postings were copied")
	}
	if _, ok := base.fields[FieldID]["xyz"]; ok {
		t.Error("new term leaked into the shared base")
	}
	if len(next.overlay[FieldID]) != len(termsOf("XYZ-9")) {
		t.Errorf("overlay holds %d terms, want %d", len(next.overlay[FieldID]), len(termsOf("XYZ-9")))
	}
	if got := next.Search("xyz", FieldID); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Search(xyz) = %v", got)
	}
}

func TestWithRecord_CompactsLargeOverlay(t *testing.T) {
	var records []record.Record
	ix := Empty()
	for i := range 300 {
		r := record.Reconstruct(fmt.Sprintf("R%05d-%d", i*7919, i), "")
		records = append(records, r)
		ix = ix.WithRecord(i, r)
	}

	if len(ix.overlay[FieldID]) > max(minOverlayTerms, len(ix.fields[FieldID])/4) {
		t.Errorf("overlay not compacted: %d terms", len(ix.overlay[FieldID]))
	}
	if !ix.Equal(build(t, records...)) {
		t.Error("incremental adds should equal a full build")
	}
	if got := ix.Search("r00000-0", FieldID); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Search(first) = %v", got)
	}
}

func TestOptimize_DropsEmptySets(t *testing.T) {
	ix := build(t, record.Reconstruct("SG COM-1", ""))
	ix.fields[FieldID]["ghost"] = positions{}

	opt, dropped := ix.Optimize()
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if _, ok := opt.fields[FieldID]["ghost"]; ok {
		t.Error("empty posting set survived Optimize")
	}
	if !reflect.DeepEqual(opt.Search("com", FieldID), []int{0}) {
		t.Error("Optimize changed lookup results")
	}
}

func TestStats(t *testing.T) {
	ix := build(t, record.Reconstruct("abcd", ""))
	s := ix.Stats()
	if s.Size != 1 {
		t.Errorf("Size = %d", s.Size)
	}
	// "abcd" exact + token "abcd" (same) + grams "abc","bcd"
	if s.Terms[FieldID] != 3 {
		t.Errorf("Terms[id] = %d, want 3", s.Terms[FieldID])
	}
	if s.Terms[FieldPhone] != 0 {
		t.Errorf("Terms[phone] = %d, want 0", s.Terms[FieldPhone])
	}
}

func TestBuild_Idempotent(t *testing.T) {
	records := []record.Record{
		record.Reconstruct("SG COM-1", "9123 4567", record.WithCompany("Acme")),
		record.Reconstruct("SG COM-2", "8123 4567", record.WithCompany("Beta")),
	}
	a, b := build(t, records...), build(t, records...)
	if !a.Equal(b) {
		t.Error("two builds of the same records differ")
	}
	if !reflect.DeepEqual(a.Terms(FieldCompany), b.Terms(FieldCompany)) {
		t.Error("Terms(company) differ")
	}
}

func TestBuild_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestBuilder(t).Build(ctx, []record.Record{record.Reconstruct("A", "")}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestField_IsValid(t *testing.T) {
	for _, f := range Fields {
		if !f.IsValid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if Field("address").IsValid() {
		t.Error("address is not an indexed field")
	}
}

package record

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r, err := New("SG COM-2001", "+65 9123 4567",
		WithCompany("Acme Pte Ltd"),
		WithAddress("1 Raffles Place"),
		WithEmail("sales@acme.sg"),
		WithWebsite("acme.sg"),
		WithStatus(StatusValid),
		WithTimestamp(ts),
		WithAttributes(map[string]string{"is_valid": "true"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "SG COM-2001" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.CompanyName() != "Acme Pte Ltd" || r.PhysicalAddress() != "1 Raffles Place" {
		t.Errorf("unexpected company/address: %q %q", r.CompanyName(), r.PhysicalAddress())
	}
	if r.Status() != StatusValid {
		t.Errorf("Status() = %v", r.Status())
	}
	if !r.HasTimestamp() || !r.Timestamp().Equal(ts) {
		t.Errorf("Timestamp() = %v", r.Timestamp())
	}
	if v, ok := r.Attribute("is_valid"); !ok || v != "true" {
		t.Errorf("Attribute(is_valid) = %q, %v", v, ok)
	}
}

func TestNew_EmptyID(t *testing.T) {
	if _, err := New("  ", "123"); err == nil {
		t.Fatal("expected error for empty ID")
	}
}

func TestNew_IDTooLong(t *testing.T) {
	if _, err := New(strings.Repeat("x", MaxIDLength+1), ""); err == nil {
		t.Fatal("expected error for long ID")
	}
}

func TestAttributes_AreCopied(t *testing.T) {
	attrs := map[string]string{"valid": "yes"}
	r := Reconstruct("A", "", WithAttributes(attrs))
	attrs["valid"] = "no"

	if v, _ := r.Attribute("valid"); v != "yes" {
		t.Errorf("record attribute mutated through caller map: %q", v)
	}
	out := r.Attributes()
	out["valid"] = "no"
	if v, _ := r.Attribute("valid"); v != "yes" {
		t.Errorf("record attribute mutated through returned map: %q", v)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"valid", StatusValid},
		{"VALID", StatusValid},
		{"invalid", StatusInvalid},
		{"false", StatusInvalid},
		{"maybe", StatusUnknown},
		{"", StatusUnknown},
	}
	for _, tc := range tests {
		if got := ParseStatus(tc.in); got != tc.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStatus_Bool(t *testing.T) {
	if v, ok := StatusValid.Bool(); !v || !ok {
		t.Errorf("StatusValid.Bool() = %v, %v", v, ok)
	}
	if v, ok := StatusInvalid.Bool(); v || !ok {
		t.Errorf("StatusInvalid.Bool() = %v, %v", v, ok)
	}
	if _, ok := StatusUnknown.Bool(); ok {
		t.Error("StatusUnknown.Bool() should not be ok")
	}
	if StatusFromBool(true) != StatusValid || StatusFromBool(false) != StatusInvalid {
		t.Error("StatusFromBool mismatch")
	}
}

func TestSearchableFields_Order(t *testing.T) {
	r := Reconstruct("id", "ph", WithCompany("co"), WithAddress("ad"), WithEmail("em"), WithWebsite("web"))
	got := r.SearchableFields()
	want := [6]string{"id", "ph", "co", "ad", "em", "web"}
	if got != want {
		t.Errorf("SearchableFields() = %v, want %v", got, want)
	}
}

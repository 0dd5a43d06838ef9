package request

import (
	"testing"
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/mode"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("hello", "", filter.Criteria{}, Options{}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "hello" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Mode() != mode.Standard {
		t.Errorf("Mode() = %q, want standard (default)", r.Mode())
	}
	if r.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v", r.Timeout())
	}
	if r.Page() != 1 || r.PageSize() != DefaultPageSize {
		t.Errorf("Page() = %d, PageSize() = %d", r.Page(), r.PageSize())
	}
	if r.Highlight() {
		t.Error("Highlight() = true")
	}
}

func TestNew_ZeroLimitsFallBackToDefaults(t *testing.T) {
	r, err := New("", mode.Range, filter.Criteria{}, Options{}, Limits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Timeout() != DefaultTimeout || r.PageSize() != DefaultPageSize {
		t.Errorf("Timeout() = %v, PageSize() = %d", r.Timeout(), r.PageSize())
	}
}

func TestNew_ExplicitValues(t *testing.T) {
	c := filter.Criteria{Status: "valid"}
	r, err := New("q", mode.Wildcard, c, Options{Timeout: time.Second, Highlight: true, Page: 3, PageSize: 7}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Mode() != mode.Wildcard || r.Criteria() != c {
		t.Errorf("Mode() = %q, Criteria() = %+v", r.Mode(), r.Criteria())
	}
	if r.Timeout() != time.Second || r.Page() != 3 || r.PageSize() != 7 || !r.Highlight() {
		t.Errorf("unexpected options: %+v", r)
	}
}

func TestNew_PageSizeClamping(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero uses default", 0, 20},
		{"negative uses default", -5, 20},
		{"within range", 50, 50},
		{"at max", 100, 100},
		{"over max clamped", 101, 100},
	}
	limits := Limits{DefaultTimeout: time.Second, DefaultPageSize: 20, MaxPageSize: 100}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("q", mode.Standard, filter.Criteria{}, Options{PageSize: tt.size}, limits)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.PageSize() != tt.want {
				t.Errorf("PageSize() = %d, want %d", r.PageSize(), tt.want)
			}
		})
	}
}

func TestNew_Unpaged(t *testing.T) {
	r, err := New("q", mode.Progressive, filter.Criteria{}, Options{Unpaged: true}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Unpaged() {
		t.Error("Unpaged() = false")
	}
	if r.WithQuery("other").Unpaged() != true {
		t.Error("withers dropped the unpaged flag")
	}
}

func TestNew_InvalidMode(t *testing.T) {
	if _, err := New("q", "hybrid", filter.Criteria{}, Options{}, DefaultLimits()); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestNew_NegativeTimeout(t *testing.T) {
	if _, err := New("q", mode.Standard, filter.Criteria{}, Options{Timeout: -time.Second}, DefaultLimits()); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestWithers(t *testing.T) {
	r, _ := New("q", mode.Standard, filter.Criteria{ID: "x", CompanyName: "y"}, Options{}, DefaultLimits())

	r2 := r.WithQuery("other").WithCriteria(r.Criteria().Reduced()).WithTimeout(r.Timeout() / 2)
	if r.Query() != "q" || r.Criteria().CompanyName != "y" {
		t.Error("original request mutated")
	}
	if r2.Query() != "other" || r2.Criteria().CompanyName != "" || r2.Timeout() != DefaultTimeout/2 {
		t.Errorf("unexpected copy: %+v", r2)
	}
	if r2.WithTimeout(0).Timeout() != DefaultTimeout/2 {
		t.Error("zero timeout should keep the current budget")
	}
}

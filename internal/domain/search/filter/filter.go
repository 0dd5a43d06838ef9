package filter

import (
	"strings"
)

// Status filter values.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// Criteria is a sparse set of per-field predicates. Empty fields are unconstrained; present
// fields are AND-combined.
type Criteria struct {
	ID          string
	Phone       string
	CompanyName string
	Address     string
	Email       string
	Website     string
	// Status is "valid" or "invalid"; any other value is unconstrained.
	Status    string
	DateRange *DateRange
}

// DateRange bounds the record timestamp. Start and End are "2006-01-02" dates or RFC 3339
// timestamps; an empty side is open.
type DateRange struct {
	Start string
	End   string
}

// IsZero reports whether neither bound is set.
func (d *DateRange) IsZero() bool {
	return d == nil || (strings.TrimSpace(d.Start) == "" && strings.TrimSpace(d.End) == "")
}

// IsEmpty reports whether no predicate constrains the result.
func (c Criteria) IsEmpty() bool {
	return len(c.Active()) == 0
}

// Active returns the names of the present predicates in evaluation order.
func (c Criteria) Active() []string {
	var names []string
	add := func(name, v string) {
		if strings.TrimSpace(v) != "" {
			names = append(names, name)
		}
	}
	add("id", c.ID)
	add("phone", c.Phone)
	add("companyName", c.CompanyName)
	add("address", c.Address)
	add("email", c.Email)
	add("website", c.Website)
	if s := strings.ToLower(strings.TrimSpace(c.Status)); s == StatusValid || s == StatusInvalid {
		names = append(names, "status")
	}
	if !c.DateRange.IsZero() {
		names = append(names, "dateRange")
	}
	return names
}

// Reduced keeps only the id and phone predicates.
func (c Criteria) Reduced() Criteria {
	return Criteria{ID: c.ID, Phone: c.Phone}
}

package record

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// MaxIDLength is the maximum record identifier length.
const MaxIDLength = 256

// Status is the tri-state validity reported by an external validator.
type Status int8

// Status values.
const (
	StatusUnknown Status = iota
	StatusValid
	StatusInvalid
)

// StatusFromBool converts a validator verdict into a Status.
func StatusFromBool(valid bool) Status {
	if valid {
		return StatusValid
	}
	return StatusInvalid
}

// ParseStatus maps "valid"/"invalid" (any case) to a Status; anything else is unknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "valid", "true":
		return StatusValid
	case "invalid", "false":
		return StatusInvalid
	default:
		return StatusUnknown
	}
}

// String returns the wire form of the status.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Bool reports the status as a boolean; ok is false for unknown.
func (s Status) Bool() (valid, ok bool) {
	switch s {
	case StatusValid:
		return true, true
	case StatusInvalid:
		return false, true
	default:
		return false, false
	}
}

// Record is a business contact row (immutable value object).
type Record struct {
	id         string
	phone      string
	company    string
	address    string
	email      string
	website    string
	status     Status
	timestamp  time.Time
	attributes map[string]string
}

// Option sets an optional Record field.
type Option func(*Record)

// WithCompany sets the company name.
func WithCompany(name string) Option { return func(r *Record) { r.company = name } }

// WithAddress sets the physical address.
func WithAddress(addr string) Option { return func(r *Record) { r.address = addr } }

// WithEmail sets the email address.
func WithEmail(email string) Option { return func(r *Record) { r.email = email } }

// WithWebsite sets the website.
func WithWebsite(site string) Option { return func(r *Record) { r.website = site } }

// WithStatus sets the validator status.
func WithStatus(s Status) Option { return func(r *Record) { r.status = s } }

// WithTimestamp sets the record timestamp used by date range filters.
func WithTimestamp(ts time.Time) Option { return func(r *Record) { r.timestamp = ts } }

// WithAttributes sets free-form string attributes (alias status fields and the like).
func WithAttributes(attrs map[string]string) Option {
	return func(r *Record) { r.attributes = maps.Clone(attrs) }
}

// New validates and creates a Record. ID is required, 1-256 chars.
func New(id, phone string, opts ...Option) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	if len(id) > MaxIDLength {
		return Record{}, fmt.Errorf("record ID too long (max %d)", MaxIDLength)
	}
	r := Reconstruct(id, phone, opts...)
	return r, nil
}

// Reconstruct creates a Record without validation (tests, trusted hydration).
func Reconstruct(id, phone string, opts ...Option) Record {
	r := Record{id: id, phone: phone}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Phone returns the phone number as entered.
func (r Record) Phone() string { return r.phone }

// CompanyName returns the company name.
func (r Record) CompanyName() string { return r.company }

// PhysicalAddress returns the physical address.
func (r Record) PhysicalAddress() string { return r.address }

// Email returns the email address.
func (r Record) Email() string { return r.email }

// Website returns the website.
func (r Record) Website() string { return r.website }

// Status returns the explicit validator status.
func (r Record) Status() Status { return r.status }

// Timestamp returns the record timestamp; zero when absent.
func (r Record) Timestamp() time.Time { return r.timestamp }

// HasTimestamp reports whether the record carries a timestamp.
func (r Record) HasTimestamp() bool { return !r.timestamp.IsZero() }

// Attribute returns a free-form attribute value.
func (r Record) Attribute(name string) (string, bool) {
	v, ok := r.attributes[name]
	return v, ok
}

// Attributes returns a copy of the free-form attributes.
func (r Record) Attributes() map[string]string { return maps.Clone(r.attributes) }

// SearchableFields returns the six fields matched by free-text queries, in scoring order.
func (r Record) SearchableFields() [6]string {
	return [6]string{r.id, r.phone, r.company, r.address, r.email, r.website}
}

// Package dto holds the JSON shapes shared by the HTTP API and the CLI.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
)

// Record is the wire form of a contact record.
type Record struct {
	ID              string            `json:"id"`
	Phone           string            `json:"phone"`
	CompanyName     string            `json:"company_name,omitempty"`
	PhysicalAddress string            `json:"physical_address,omitempty"`
	Email           string            `json:"email,omitempty"`
	Website         string            `json:"website,omitempty"`
	Status          Status            `json:"status,omitempty"`
	Timestamp       *time.Time        `json:"timestamp,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// Status accepts "valid", "invalid", true, false or null and encodes as a string.
type Status string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		*s = ""
		return nil
	case "true":
		*s = Status(record.StatusValid.String())
		return nil
	case "false":
		*s = Status(record.StatusInvalid.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("status must be a string or boolean: %w", err)
	}
	*s = Status(str)
	return nil
}

// ToDomain validates and converts the record.
func (r Record) ToDomain() (record.Record, error) {
	opts := []record.Option{
		record.WithCompany(r.CompanyName),
		record.WithAddress(r.PhysicalAddress),
		record.WithEmail(r.Email),
		record.WithWebsite(r.Website),
		record.WithStatus(record.ParseStatus(string(r.Status))),
	}
	if r.Timestamp != nil {
		opts = append(opts, record.WithTimestamp(*r.Timestamp))
	}
	if len(r.Attributes) > 0 {
		opts = append(opts, record.WithAttributes(r.Attributes))
	}
	rec, err := record.New(r.ID, r.Phone, opts...)
	if err != nil {
		return record.Record{}, fmt.Errorf("record %q: %w", r.ID, err)
	}
	return rec, nil
}

// RecordFromDomain converts a domain record to its wire form.
func RecordFromDomain(r record.Record) Record {
	out := Record{
		ID:              r.ID(),
		Phone:           r.Phone(),
		CompanyName:     r.CompanyName(),
		PhysicalAddress: r.PhysicalAddress(),
		Email:           r.Email(),
		Website:         r.Website(),
		Status:          Status(r.Status().String()),
		Attributes:      r.Attributes(),
	}
	if r.HasTimestamp() {
		ts := r.Timestamp()
		out.Timestamp = &ts
	}
	return out
}

// RecordsFromDomain converts a slice; the result is never nil.
func RecordsFromDomain(records []record.Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = RecordFromDomain(r)
	}
	return out
}

// ToDomainRecords converts a slice, failing on the first invalid record.
func ToDomainRecords(in []Record) ([]record.Record, error) {
	out := make([]record.Record, len(in))
	for i, r := range in {
		rec, err := r.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = rec
	}
	return out, nil
}

// DecodeRecords reads a JSON array of records.
func DecodeRecords(r io.Reader) ([]record.Record, error) {
	var in []Record
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return ToDomainRecords(in)
}

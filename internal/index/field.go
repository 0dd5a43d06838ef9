package index

import (
	"strings"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
)

// Field names a postings map.
type Field string

// Indexed fields.
const (
	FieldID       Field = "id"
	FieldPhone    Field = "phone"
	FieldCompany  Field = "company"
	FieldEmail    Field = "email"
	FieldWebsite  Field = "website"
	FieldFullText Field = "fulltext"
)

// Fields lists every indexed field in build order.
var Fields = []Field{FieldID, FieldPhone, FieldCompany, FieldEmail, FieldWebsite, FieldFullText}

// IsValid checks if the field is one of the indexed fields.
func (f Field) IsValid() bool {
	switch f {
	case FieldID, FieldPhone, FieldCompany, FieldEmail, FieldWebsite, FieldFullText:
		return true
	}
	return false
}

// valueOf returns the text indexed for r under f.
func valueOf(f Field, r record.Record) string {
	switch f {
	case FieldID:
		return r.ID()
	case FieldPhone:
		return r.Phone()
	case FieldCompany:
		return r.CompanyName()
	case FieldEmail:
		return r.Email()
	case FieldWebsite:
		return r.Website()
	case FieldFullText:
		return fullText(r)
	}
	return ""
}

func fullText(r record.Record) string {
	fields := r.SearchableFields()
	parts := make([]string, 0, len(fields))
	for _, v := range fields {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

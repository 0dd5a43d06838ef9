package query

import (
	"errors"
	"fmt"
	"strings"
)

// MaxQueryLength is the maximum accepted query length in bytes.
const MaxQueryLength = 4096

// Validation errors.
var (
	ErrEmptyPattern    = errors.New("query is empty")
	ErrPatternTooLong  = fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	ErrRangeNotNumeric = errors.New("range endpoints must end in a number")
	ErrRangeOrder      = errors.New("range start is greater than range end")
	ErrWildcardInside  = errors.New("only a single trailing * is supported")
)

// Validation is the outcome of ValidatePattern.
type Validation struct {
	Valid bool
	Error error
}

// Message returns the error text, or "" for a valid pattern.
func (v Validation) Message() string {
	if v.Error == nil {
		return ""
	}
	return v.Error.Error()
}

// ValidatePattern checks raw without panicking. Reversed ranges are rejected, never swapped.
func ValidatePattern(raw string) Validation {
	if len(raw) > MaxQueryLength {
		return Validation{Error: ErrPatternTooLong}
	}
	p := Parse(raw)
	switch p.Kind() {
	case Empty:
		return Validation{Error: ErrEmptyPattern}
	case Wildcard:
		if strings.Contains(p.Prefix(), "*") {
			return Validation{Error: fmt.Errorf("%w: %q", ErrWildcardInside, p.Raw())}
		}
	case Range:
		a, okA := ExtractNumericID(p.Start())
		b, okB := ExtractNumericID(p.End())
		if !okA || !okB {
			return Validation{Error: fmt.Errorf("%w: %q to %q", ErrRangeNotNumeric, p.Start(), p.End())}
		}
		if a > b {
			return Validation{Error: fmt.Errorf("%w: %d > %d", ErrRangeOrder, a, b)}
		}
	}
	return Validation{Valid: true}
}

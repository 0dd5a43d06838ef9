package filter

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
)

// StatusResolver is the external phone validator consulted when a record carries no status.
type StatusResolver interface {
	Resolve(ctx context.Context, phone string) (bool, error)
}

// StatusResolverFunc adapts a function to StatusResolver.
type StatusResolverFunc func(ctx context.Context, phone string) (bool, error)

// Resolve calls f.
func (f StatusResolverFunc) Resolve(ctx context.Context, phone string) (bool, error) {
	return f(ctx, phone)
}

// Resolver names accepted by NewResolver.
const (
	ResolverNone        = "none"
	ResolverPhoneLength = "phone_length"
)

// NewResolver returns the resolver registered under name. "none" and "" yield nil.
func NewResolver(name string) (StatusResolver, error) {
	switch name {
	case "", ResolverNone:
		return nil, nil
	case ResolverPhoneLength:
		return PhoneLengthResolver{}, nil
	}
	return nil, fmt.Errorf("unknown status resolver %q", name)
}

// PhoneLengthResolver treats a phone as valid when it has 8 to 15 digits, the E.164 range.
// Separators and a leading + are ignored; any other character makes it invalid.
type PhoneLengthResolver struct{}

// Resolve implements StatusResolver.
func (PhoneLengthResolver) Resolve(_ context.Context, phone string) (bool, error) {
	digits := 0
	for i, c := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(c):
			digits++
		case c == '+' && i == 0, c == ' ', c == '-', c == '(', c == ')', c == '.':
		default:
			return false, nil
		}
	}
	return digits >= 8 && digits <= 15, nil
}

// statusAliases are attribute names treated as boolean-like status fields, in lookup order.
var statusAliases = []string{
	"is_valid", "isValid", "valid", "phone_valid", "phoneValid", "validation_status", "status",
}

// aliasStatus resolves status from boolean-like attributes.
func aliasStatus(r record.Record) (bool, bool) {
	for _, name := range statusAliases {
		v, ok := r.Attribute(name)
		if !ok {
			continue
		}
		if b, ok := parseBoolish(v); ok {
			return b, true
		}
	}
	return false, false
}

func parseBoolish(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "valid":
		return true, true
	case "false", "no", "n", "0", "invalid":
		return false, true
	}
	return false, false
}

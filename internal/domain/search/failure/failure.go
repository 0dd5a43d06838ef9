package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a search failure by where it originated.
type Kind string

// Failure kinds.
const (
	KindTimeout        Kind = "timeout"
	KindPatternInvalid Kind = "pattern_invalid"
	KindNetwork        Kind = "network"
	KindMemory         Kind = "memory"
	KindIndex          Kind = "index_error"
	KindFilter         Kind = "filter_error"
	KindUnknown        Kind = "unknown"
)

// Kinds lists every failure kind in a stable order.
var Kinds = []Kind{
	KindTimeout, KindPatternInvalid, KindNetwork, KindMemory, KindIndex, KindFilter, KindUnknown,
}

// Severity is the operational weight of a failure kind.
type Severity string

// Severity levels.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Severity returns the severity of the kind. Network and memory failures are high.
func (k Kind) Severity() Severity {
	switch k {
	case KindNetwork, KindMemory:
		return SeverityHigh
	case KindTimeout, KindIndex, KindFilter:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Recoverable reports whether automated recovery may be attempted.
func (k Kind) Recoverable() bool {
	return k.Severity() != SeverityHigh
}

// Stage is a step of the search pipeline.
type Stage string

// Pipeline stages.
const (
	StageParsing   Stage = "parsing"
	StageFiltering Stage = "filtering"
	StageMatching  Stage = "matching"
	StageRanking   Stage = "ranking"
)

// DefaultKind returns the kind used for untagged failures raised inside the stage.
func (s Stage) DefaultKind() Kind {
	switch s {
	case StageParsing:
		return KindPatternInvalid
	case StageFiltering:
		return KindFilter
	case StageMatching:
		return KindIndex
	default:
		return KindUnknown
	}
}

// Error is a failure tagged with its kind at the point where it happened.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New tags err with a kind. A nil err yields nil.
func New(kind Kind, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Newf tags a formatted message with a kind.
func Newf(kind Kind, stage Stage, format string, args ...any) error {
	return &Error{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// AtStage tags err with the stage's default kind unless it already carries a kind.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if k, ok := kindOfUntagged(err); ok {
		return &Error{Kind: k, Stage: stage, Err: err}
	}
	return &Error{Kind: stage.DefaultKind(), Stage: stage, Err: err}
}

// Classify returns the kind carried by err. Untagged deadline errors are timeouts and net.Error values are
// network failures; anything else is unknown.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if k, ok := kindOfUntagged(err); ok {
		return k
	}
	return KindUnknown
}

// StageOf returns the stage recorded on err, or "" when err carries none.
func StageOf(err error) Stage {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Stage
	}
	return ""
}

func kindOfUntagged(err error) (Kind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindNetwork, true
	}
	return "", false
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Package stageerr defines the three-kind error taxonomy of the extraction
// stages: invalid input, unsupported output target, or (implicitly, via Go's
// own allocator) out of memory. Of the stages, only internal/pe returns
// these errors; the x86 decoder, the UIR lifter and the generator return
// no errors.
package stageerr

import "fmt"

// Kind classifies a stage failure.
type Kind int

const (
	// KindInvalidInput marks a PE format violation, truncation, or any
	// other malformed input. No partial result is returned alongside it.
	KindInvalidInput Kind = iota
	// KindUnsupported marks a requested output or feature the generator
	// does not implement.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid-input"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the single error type a failing stage returns. Stages never retry
// and never expose a partial result alongside a non-nil Error.
type Error struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a stage Error wrapping err.
func New(stage string, kind Kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// Invalid is shorthand for New(stage, KindInvalidInput, fmt.Errorf(format, args...)).
func Invalid(stage, format string, args ...any) *Error {
	return New(stage, KindInvalidInput, fmt.Errorf(format, args...))
}

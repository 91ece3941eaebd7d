package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which subsystem produced the error
type Phase string

const (
	PhaseTable    Phase = "table"    // resource table
	PhasePoll     Phase = "poll"     // pollables and the poller arena
	PhaseReactor  Phase = "reactor"  // waker registration and draining
	PhaseExecutor Phase = "executor" // root future driver
	PhaseHost     Phase = "host"     // WASI host functions
	PhaseConfig   Phase = "config"   // scenario and option parsing
)

// Kind categorizes the error
type Kind string

const (
	KindCapacity          Kind = "capacity"
	KindNotFound          Kind = "not_found"
	KindWrongType         Kind = "wrong_type"
	KindHasChildren       Kind = "has_children"
	KindDeadlock          Kind = "deadlock"
	KindProtocolViolation Kind = "protocol_violation"
	KindInvalidInput      Kind = "invalid_input"
	KindClosed            Kind = "closed"
	KindInternal          Kind = "internal"
)

// Sentinels match any *Error of the same kind, regardless of phase.
var (
	ErrCapacity    = &Error{Kind: KindCapacity}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrWrongType   = &Error{Kind: KindWrongType}
	ErrHasChildren = &Error{Kind: KindHasChildren}
	ErrDeadlock    = &Error{Kind: KindDeadlock}
	ErrClosed      = &Error{Kind: KindClosed}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Capacity creates a capacity exhaustion error
func Capacity(phase Phase, what string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapacity,
		Detail: fmt.Sprintf("%s exhausted (limit %d)", what, limit),
		Value:  limit,
	}
}

// NotFound creates a not-found error for an unknown or stale identifier
func NotFound(phase Phase, what string, id any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %v not found", what, id),
		Value:  id,
	}
}

// WrongType creates a type mismatch error for a typed accessor
func WrongType(phase Phase, id any, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWrongType,
		GoType: want,
		Detail: fmt.Sprintf("handle %v holds %s", id, got),
		Value:  id,
	}
}

// HasChildren creates an error for deleting an entry that still owns children
func HasChildren(phase Phase, id any, children int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindHasChildren,
		Detail: fmt.Sprintf("handle %v has %d live children", id, children),
		Value:  id,
	}
}

// Deadlock creates an error for a run that can make no further progress
func Deadlock(detail string) *Error {
	return &Error{
		Phase:  PhaseExecutor,
		Kind:   KindDeadlock,
		Detail: detail,
	}
}

// Closed creates an error for operations on a closed container
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library so callers need a single import.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAllocate Phase = "allocate" // allocator bridge
	PhaseStatus   Phase = "status"   // status conversion
	PhaseInstance Phase = "instance" // instance lifecycle
	PhaseDevice   Phase = "device"   // device lookup and release
	PhaseSession  Phase = "session"  // session lifecycle
	PhaseModule   Phase = "module"   // module append and calls
	PhaseLifetime Phase = "lifetime" // ownership graph checks
	PhaseConfig   Phase = "config"   // options and config files
	PhaseLoad     Phase = "load"     // native library loading
)

// Kind categorizes the error
type Kind string

const (
	KindStatus         Kind = "status"
	KindOverflow       Kind = "overflow"
	KindUnsupported    Kind = "unsupported"
	KindAllocation     Kind = "allocation"
	KindNotInitialized Kind = "not_initialized"
	KindReleased       Kind = "released"
	KindBorrowed       Kind = "borrowed"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindNotFound       Kind = "not_found"
)

// Error is the structured error type used throughout the bindings
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Code     Code
	Resource string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Code != codeNone {
		b.WriteString(" (")
		b.WriteString(e.Code.String())
		b.WriteByte(')')
	}

	if e.Resource != "" {
		b.WriteString(" at ")
		b.WriteString(e.Resource)
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// StatusCode returns the status code family, if any.
func (e *Error) StatusCode() Code {
	return e.Code
}

// Is reports whether target matches this error. A *Error target matches on
// Phase and Kind; a Code target matches on Code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Phase == t.Phase && e.Kind == t.Kind
	case Code:
		return e.Code != codeNone && e.Code == t
	}
	return false
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

// Code sets the status code family
func (b *Builder) Code(c Code) *Builder {
	b.err.Code = c
	return b
}

// Resource names the resource the error concerns
func (b *Builder) Resource(name string) *Builder {
	b.err.Resource = name
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

// Status wraps a native status failure. The code is lifted from cause when
// it carries one.
func Status(phase Phase, resource string, cause error, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindStatus,
		Code:     CodeOf(cause),
		Resource: resource,
		Detail:   detail,
		Cause:    cause,
	}
}

// Overflow creates a size overflow error
func Overflow(phase Phase, size uintptr, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Code:   CodeOutOfRange,
		Detail: fmt.Sprintf("size %d exceeds limit %d", size, limit),
		Value:  size,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Code:   CodeUnimplemented,
		Detail: what,
	}
}

// NotInitialized creates a not-initialized error for options or handles
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotInitialized,
		Code:     CodeFailedPrecondition,
		Resource: what,
		Detail:   fmt.Sprintf("%s not initialized", what),
	}
}

// Released creates an error for use of a resource after its release
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindReleased,
		Code:     CodeFailedPrecondition,
		Resource: what,
		Detail:   fmt.Sprintf("%s already released", what),
	}
}

// OutstandingBorrows creates an error for releasing a resource that is
// still borrowed by descendants
func OutstandingBorrows(phase Phase, what string, borrows uint32) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindBorrowed,
		Code:     CodeFailedPrecondition,
		Resource: what,
		Detail:   fmt.Sprintf("%s has %d outstanding borrow(s)", what, borrows),
		Value:    borrows,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Code:   CodeNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Code:   CodeInvalidArgument,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Code:   CodeOf(cause),
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a native library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindUnsupported,
		Code:   CodeUnavailable,
		Detail: detail,
		Cause:  cause,
	}
}

package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseNaming  Phase = "naming"  // identity allocation and admission
	PhaseEmit    Phase = "emit"    // backend emission
	PhaseResolve Phase = "resolve" // resolution hook queries
	PhaseLoad    Phase = "load"    // loader delegation
	PhaseBuild   Phase = "build"   // submission orchestration
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
	KindInvalidInput Kind = "invalid_input"
	KindCollision    Kind = "collision"
	KindCancelled    Kind = "cancelled"
	KindRegistration Kind = "registration"
)

// Error is the structured error type used throughout the engine
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Identity string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Identity != "" {
		b.WriteByte(' ')
		b.WriteString(e.Identity)
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
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

// Identity sets the module identity the error concerns
func (b *Builder) Identity(id string) *Builder {
	b.err.Identity = id
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

// NotFound creates a not-found error for an unresolvable identity
func NotFound(phase Phase, identity string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotFound,
		Identity: identity,
		Detail:   "identity could not be resolved",
	}
}

// Internal creates an internal-consistency violation. These signal a defect
// in upstream policy, not a user-recoverable condition.
func Internal(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
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

// Collision creates an error for an identity that illegally aliases the
// engine's generated namespace
func Collision(phase Phase, identity string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindCollision,
		Identity: identity,
		Detail:   "identity collides with the generated namespace",
	}
}

// Cancelled wraps a context cancellation observed during a build
func Cancelled(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCancelled,
		Detail: "operation cancelled",
		Cause:  cause,
	}
}

// Registration creates a registration error
func Registration(phase Phase, identity string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindRegistration,
		Identity: identity,
		Detail:   "registration failed",
		Cause:    cause,
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

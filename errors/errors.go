package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the lifecycle the error occurred
type Phase string

const (
	PhaseAcquire   Phase = "acquire"   // constructor acquiring resources
	PhaseOperation Phase = "operation" // guarded owner methods
	PhaseRelease   Phase = "release"   // deterministic release
	PhaseFallback  Phase = "fallback"  // cleanup run by the garbage collector
	PhaseMemory    Phase = "memory"    // linear memory access
	PhaseScope     Phase = "scope"     // scoped acquisition
)

// Kind categorizes the error
type Kind string

const (
	KindUsedAfterRelease Kind = "used_after_release"
	KindAcquisition      Kind = "acquisition"
	KindDoubleRelease    Kind = "double_release"
	KindRelease          Kind = "release"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindAllocation       Kind = "allocation"
	KindInvalidHandle    Kind = "invalid_handle"
	KindInvalidInput     Kind = "invalid_input"
	KindIO               Kind = "io"
)

// Sentinels for errors.Is. They match on Kind regardless of Phase.
var (
	ErrUsedAfterRelease = &Error{Kind: KindUsedAfterRelease}
	ErrAcquisition      = &Error{Kind: KindAcquisition}
	ErrDoubleRelease    = &Error{Kind: KindDoubleRelease}
	ErrOutOfBounds      = &Error{Kind: KindOutOfBounds}
	ErrAllocation       = &Error{Kind: KindAllocation}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Level  string
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

	if e.Type != "" {
		b.WriteString(" on ")
		b.WriteString(e.Type)
		if e.Level != "" && e.Level != e.Type {
			b.WriteString(" (level ")
			b.WriteString(e.Level)
			b.WriteByte(')')
		}
	} else if e.Level != "" {
		b.WriteString(" at level ")
		b.WriteString(e.Level)
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

// Is reports whether target matches this error. Kind must match; Phase
// must match only when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Phase == "" || e.Phase == t.Phase
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

// Type sets the owner type name
func (b *Builder) Type(name string) *Builder {
	b.err.Type = name
	return b
}

// Level sets the release level name
func (b *Builder) Level(name string) *Builder {
	b.err.Level = name
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

// UsedAfterRelease reports an operation on an owner that was already released
func UsedAfterRelease(typeName string) *Error {
	return &Error{
		Phase:  PhaseOperation,
		Kind:   KindUsedAfterRelease,
		Type:   typeName,
		Detail: "object used after release",
	}
}

// AcquisitionFailed reports a constructor that could not acquire a resource.
// Resources acquired earlier in the same construction have been released.
func AcquisitionFailed(typeName, what string, cause error) *Error {
	return &Error{
		Phase:  PhaseAcquire,
		Kind:   KindAcquisition,
		Type:   typeName,
		Detail: fmt.Sprintf("acquire %s", what),
		Cause:  cause,
	}
}

// DoubleRelease reports a raw handle freed more than once
func DoubleRelease(phase Phase, what string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDoubleRelease,
		Detail: fmt.Sprintf("%s already released", what),
		Value:  value,
	}
}

// ReleaseFailed wraps a failure to free a handle or release an owned value
func ReleaseFailed(phase Phase, typeName, level string, cause error) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindRelease,
		Type:  typeName,
		Level: level,
		Cause: cause,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error for a range access
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) out of bounds (size %d)", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// InvalidHandle reports a handle that does not refer to a live entry
func InvalidHandle(phase Phase, handle any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid handle %v", handle),
		Value:  handle,
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

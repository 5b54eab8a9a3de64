package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"syscall"
)

// Phase indicates where in a host's lifetime the error occurred
type Phase string

const (
	PhaseInit      Phase = "init"      // execution context setup on the worker
	PhaseConstruct Phase = "construct" // two-phase object construction
	PhaseMarshal   Phase = "marshal"   // handle production
	PhaseUnmarshal Phase = "unmarshal" // handle consumption by the requester
	PhaseDispatch  Phase = "dispatch"  // calls redirected onto the worker
	PhaseShutdown  Phase = "shutdown"  // destruction and teardown
	PhaseLoad      Phase = "load"      // module loading for hosted objects
	PhaseConfig    Phase = "config"    // configuration parsing
)

// Kind categorizes the error
type Kind string

// Caller-visible taxonomy. Create only ever reports one of these three.
const (
	KindPlatform    Kind = "platform"
	KindOutOfMemory Kind = "out_of_memory"
	KindGeneric     Kind = "generic"
)

const (
	KindNotSupported Kind = "not_supported"
	KindDisconnected Kind = "disconnected"
	KindExhausted    Kind = "exhausted"
	KindReleased     Kind = "released"
	KindTypeMismatch Kind = "type_mismatch"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindInvalidData  Kind = "invalid_data"
)

// ErrOutOfMemory is the sentinel hosted objects return when an allocation
// they manage cannot be satisfied.
var ErrOutOfMemory = stderrors.New("out of memory")

// PlatformCoder is implemented by errors that carry a platform status code.
type PlatformCoder interface {
	PlatformCode() int32
}

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	WitType string
	Detail  string
	Code    int32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Kind == KindPlatform {
		fmt.Fprintf(&b, " code %d (0x%08X)", e.Code, uint32(e.Code))
	}

	if e.GoType != "" || e.WitType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WitType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", WIT type ")
			b.WriteString(e.WitType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("WIT type ")
			b.WriteString(e.WitType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WitType != "" {
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

// Is reports whether target matches this error. An empty target phase
// matches any phase; a non-zero target code must match exactly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == 0 || e.Code == t.Code
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

// Code sets the platform status code
func (b *Builder) Code(code int32) *Builder {
	b.err.Code = code
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WitType sets the WIT type name
func (b *Builder) WitType(t string) *Builder {
	b.err.WitType = t
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

// Platform creates an error carrying a platform status code
func Platform(phase Phase, code int32) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindPlatform,
		Code:  code,
	}
}

// OutOfMemory creates an allocation failure error
func OutOfMemory(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: "out of memory",
	}
}

// Generic creates an unclassified failure. It deliberately carries no cause.
func Generic(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGeneric,
		Detail: "unspecified failure",
	}
}

// NotSupported creates an error for a capability the object does not implement
func NotSupported(phase Phase, capability string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotSupported,
		Detail: fmt.Sprintf("capability %q not supported", capability),
		Value:  capability,
	}
}

// Disconnected creates an error for a call that arrived after the object was destroyed
func Disconnected(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDisconnected,
		Detail: "object has been disconnected from its host",
	}
}

// Exhausted creates a resource exhaustion error
func Exhausted(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("%s exhausted", what),
	}
}

// Released creates an error for a release past a zero reference count
func Released(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: "reference count already reached zero",
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, goType, witType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		GoType:  goType,
		WitType: witType,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
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

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Classify maps an arbitrary failure onto the caller-visible taxonomy.
// Platform codes survive from *Error, PlatformCoder and syscall.Errno;
// ErrOutOfMemory becomes KindOutOfMemory; everything else collapses to
// KindGeneric without its cause.
func Classify(phase Phase, err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case KindPlatform:
			return Platform(phase, e.Code)
		case KindOutOfMemory:
			return OutOfMemory(phase)
		}
	}

	var coder PlatformCoder
	if stderrors.As(err, &coder) {
		return Platform(phase, coder.PlatformCode())
	}

	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return Platform(phase, int32(errno))
	}

	if stderrors.Is(err, ErrOutOfMemory) {
		return OutOfMemory(phase)
	}

	return Generic(phase)
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the platform code carried by err, if any.
func CodeOf(err error) (int32, bool) {
	var e *Error
	if stderrors.As(err, &e) && e.Kind == KindPlatform {
		return e.Code, true
	}
	return 0, false
}

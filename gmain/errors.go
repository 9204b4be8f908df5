package gmain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the main-context/source lifecycle and loop control.
var (
	// ErrLoopAlreadyRunning describes a loop that is already running on
	// another goroutine. [Loop.Run] returns no error: a Run call on a
	// running loop returns immediately without iterating.
	ErrLoopAlreadyRunning = errors.New("gmain: loop is already running")

	// ErrReentrantRun describes a Run call made from within the loop's
	// own dispatch. [Loop.Run] returns no error; such a call returns
	// immediately, as for any Run on a running loop.
	ErrReentrantRun = errors.New("gmain: cannot call Run from within the loop")

	// ErrSourceAttached is returned by [Context.AttachSource] when the
	// source is already attached to a context.
	ErrSourceAttached = errors.New("gmain: source already attached to a context")

	// ErrSourceDestroyed is returned when an operation requires a live
	// source but the source has been destroyed.
	ErrSourceDestroyed = errors.New("gmain: source has been destroyed")

	// ErrNotOwner describes a goroutine that does not hold context
	// ownership (see [Context.Acquire]). No function in this package
	// returns it; [Context.Acquire] reports that case as false.
	ErrNotOwner = errors.New("gmain: calling goroutine does not own the context")

	// ErrThreadDefaultStackEmpty is returned by [PopThreadDefaultContext]
	// when the calling goroutine's thread-default stack is empty.
	ErrThreadDefaultStackEmpty = errors.New("gmain: thread-default context stack is empty")

	// ErrThreadDefaultMismatch is returned by [PopThreadDefaultContext]
	// when the context being popped is not the top of the stack.
	ErrThreadDefaultMismatch = errors.New("gmain: popped context does not match thread-default stack top")

	// ErrChildSourceReparented is returned by [Source.AddChildSource]
	// when the child already has a parent or is already attached.
	ErrChildSourceReparented = errors.New("gmain: child source already attached or parented")

	// ErrChildPriorityFixed is returned by [Source.SetPriority] when
	// called on a source that has a parent; priority on a child source
	// may only be changed by changing the parent's priority.
	ErrChildPriorityFixed = errors.New("gmain: priority of a child source is fixed by its parent")

	// ErrUnixFDNotFound is returned by [Source.ModifyUnixFD],
	// [Source.RemoveUnixFD], and [Source.QueryUnixFD] when the supplied
	// tag does not identify a poll record on the source.
	ErrUnixFDNotFound = errors.New("gmain: unix fd tag not found on source")

	// ErrSignalUnsupported is returned when unix signal-watch sources are
	// requested on a platform without asynchronous signal delivery.
	ErrSignalUnsupported = errors.New("gmain: unix signal watches are not supported on this platform")
)

// ErrKind classifies a [Error] for programmatic matching: resource
// exhaustion, timeouts, non-blocking retry, end of stream, low-level I/O
// failure, bad arguments, partial/illegal byte sequences, and conversion
// failures.
type ErrKind int

const (
	// KindUnknown is the zero value; never returned by this package.
	KindUnknown ErrKind = iota
	// KindResourceExhausted indicates a resource (typically a thread)
	// could not be created.
	KindResourceExhausted
	// KindTimeout indicates a bounded wait reached its deadline.
	KindTimeout
	// KindWouldBlock indicates a non-blocking operation would have
	// blocked (AGAIN).
	KindWouldBlock
	// KindEOF indicates the end of a channel or stream was reached.
	KindEOF
	// KindIO indicates a low-level I/O failure from a transport.
	KindIO
	// KindInvalidArgument indicates bad flags, a bad seek type, a
	// mismatched encoding state, or similar programming errors.
	KindInvalidArgument
	// KindPartialInput indicates leftover bytes that do not form a
	// complete character at EOF.
	KindPartialInput
	// KindIllegalSequence indicates bytes that do not decode in the
	// current encoding.
	KindIllegalSequence
	// KindConversionFailed indicates an encoder/decoder could not be
	// constructed for the requested encoding.
	KindConversionFailed
)

// String returns a short human-readable name for the kind.
func (k ErrKind) String() string {
	switch k {
	case KindResourceExhausted:
		return "resource-exhausted"
	case KindTimeout:
		return "timeout"
	case KindWouldBlock:
		return "would-block"
	case KindEOF:
		return "eof"
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindPartialInput:
		return "partial-input"
	case KindIllegalSequence:
		return "illegal-sequence"
	case KindConversionFailed:
		return "conversion-failed"
	default:
		return "unknown"
	}
}

// Error is a typed failure carrier classified by [ErrKind], realized
// directly on top of the standard errors package rather than a
// registered-domain/quark scheme. No function in gmain itself returns one;
// it is constructed with [NewError].
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

// NewError constructs an [Error] of the given kind.
func NewError(kind ErrKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gmain: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("gmain: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any, for [errors.Is]/[errors.As].
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an [*Error] of the same [ErrKind].
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// WithCause returns a copy of e with Cause set, for wrapping low-level
// errors (e.g. a syscall error from a transport) without losing the Kind.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Wrap annotates err with a message, preserving it for [errors.Is]/[errors.As]
// via %w.
func Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

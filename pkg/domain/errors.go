package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies dispatcher failures as seen by the caller.
type ErrorKind string

const (
	KindNoActiveSession   ErrorKind = "NoActiveSession"
	KindTypeMismatch      ErrorKind = "TypeMismatch"
	KindInvalidArgument   ErrorKind = "InvalidArgument"
	KindSessionOpenFailed ErrorKind = "SessionOpenFailed"
	KindCancelled         ErrorKind = "Cancelled"
	KindUnknownCommand    ErrorKind = "UnknownCommand"
	KindInternal          ErrorKind = "Internal"
)

// OpenFailureReason explains why a container could not be opened.
type OpenFailureReason string

const (
	ReasonNetwork   OpenFailureReason = "network"
	ReasonInvalidID OpenFailureReason = "invalid_id"
	ReasonTimeout   OpenFailureReason = "timeout"
)

// Error is the typed failure reported to callers through a response sink.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Reason  OpenFailureReason // Only set for KindSessionOpenFailed
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that sentinels like ErrNoActiveSession match
// any error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	// ErrNoActiveSession is returned when an accessor runs outside the Open state.
	ErrNoActiveSession = &Error{Kind: KindNoActiveSession, Message: "no active session, open a container first"}

	// ErrTypeMismatch is returned when a value tag does not match the requested type.
	ErrTypeMismatch = &Error{Kind: KindTypeMismatch, Message: "type mismatch"}

	// ErrInvalidArgument is returned for malformed or missing arguments.
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}

	// ErrSessionOpenFailed is returned when the SDK cannot open a container.
	ErrSessionOpenFailed = &Error{Kind: KindSessionOpenFailed, Message: "session open failed"}

	// ErrCancelled is delivered to a pending open superseded by another open or a close.
	ErrCancelled = &Error{Kind: KindCancelled, Message: "cancelled"}

	// ErrUnknownCommand is returned when a command name cannot be routed.
	ErrUnknownCommand = &Error{Kind: KindUnknownCommand, Message: "unknown command"}

	// ErrSnapshotNotFound is returned by snapshot stores for unknown containers.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// NewError builds a typed error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument is a shorthand for NewError(KindInvalidArgument, ...).
func InvalidArgument(format string, args ...any) *Error {
	return NewError(KindInvalidArgument, format, args...)
}

// TypeMismatch is a shorthand for NewError(KindTypeMismatch, ...).
func TypeMismatch(format string, args ...any) *Error {
	return NewError(KindTypeMismatch, format, args...)
}

// OpenFailed builds a SessionOpenFailed error with the given reason.
func OpenFailed(reason OpenFailureReason, cause error) *Error {
	return &Error{
		Kind:    KindSessionOpenFailed,
		Reason:  reason,
		Message: "session open failed",
		Err:     cause,
	}
}

// Internal wraps an unexpected collaborator failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// AsError converts any error into a typed *Error, defaulting to KindInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal("internal error", err)
}

package explain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a request could not produce an explanation.
type FailureKind int

const (
	FailUnknown FailureKind = iota
	FailMissingCredential
	FailNetwork
	FailRefusal
	FailParse
	FailEmptyResult
	FailStreamIncomplete
	FailCacheUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailMissingCredential:
		return "MissingCredential"
	case FailNetwork:
		return "NetworkFailure"
	case FailRefusal:
		return "RefusalOrSafetyBlock"
	case FailParse:
		return "ParseFailure"
	case FailEmptyResult:
		return "EmptyResult"
	case FailStreamIncomplete:
		return "StreamIncomplete"
	case FailCacheUnavailable:
		return "CacheUnavailable"
	default:
		return "Unknown"
	}
}

// Error is the failure type surfaced for a single request. It wraps an
// optional cause and renders to one human-readable reason string.
type Error struct {
	Kind    FailureKind
	Message string
	Cause   error
}

func NewError(kind FailureKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind FailureKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an explain Error of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind == kind
	}
	return false
}

// Reason reduces any error to the short string reported to the rendering
// collaborator in a REQUEST_FAILED notification.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var ee *Error
	if errors.As(err, &ee) {
		if ee.Cause != nil {
			return fmt.Sprintf("%s: %v", ee.Message, ee.Cause)
		}
		return ee.Message
	}
	return err.Error()
}

package reason

import (
	"context"
	"errors"
	"fmt"

	"github.com/mnehpets/callspec/callpath"
)

// Error is the failure of a call. Body holds whatever response text was
// available when the error was received from a server.
type Error struct {
	Reason  Reason
	Message string
	Body    string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Reason.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Body != "" {
		msg += " (body: " + e.Body + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error with the same Reason, so that
// errors.Is(err, &Error{Reason: r}) tests the classification.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Cause == nil && t.Reason == e.Reason
}

// Retryable reports whether the error's reason is retryable.
func (e *Error) Retryable() bool { return e.Reason.Retryable() }

// New returns an error with the reason and message.
func New(r Reason, message string) *Error {
	return &Error{Reason: r, Message: message}
}

// Errorf returns an error with the reason and a formatted message.
func Errorf(r Reason, format string, args ...any) *Error {
	return &Error{Reason: r, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error with the reason that wraps cause.
func Wrap(r Reason, cause error, message string) *Error {
	return &Error{Reason: r, Message: message, Cause: cause}
}

// Of returns the reason of err, as classified by From.
func Of(err error) Reason {
	return From(err).Reason
}

// From classifies err. An *Error anywhere in the chain is returned as is;
// call path parse failures are InvalidCallPath, context deadlines are
// retryable, and everything else is UnexpectedPermanentError. From returns
// nil for a nil err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	var pe *callpath.ParseError
	if errors.As(err, &pe) {
		return Wrap(InvalidCallPath, err, "")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(UnexpectedRetryableError, err, "")
	}
	return Wrap(UnexpectedPermanentError, err, "")
}

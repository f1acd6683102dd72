package errors

import "fmt"

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrUpstream
	ErrValidation
	ErrNotFound
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failure talking to the tracker: transport errors and
// non-2xx responses both land here.
func Upstream(err error, msg string) *Error {
	return &Error{Kind: ErrUpstream, Message: msg, Err: err}
}

func Upstreamf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

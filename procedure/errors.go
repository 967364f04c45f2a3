package procedure

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorises a rejection so transport adapters can map it to a status.
type Code string

const (
	// CodeUnauthorized rejects a caller that lacks a required permission or identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden rejects an identified caller the stage refuses to serve.
	CodeForbidden Code = "forbidden"
	// CodeBadRequest rejects malformed input.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound reports a missing resource.
	CodeNotFound Code = "not_found"
	// CodeInternal reports a failure on the server side.
	CodeInternal Code = "internal_server_error"
)

// Error is a rejection raised by a stage. It carries a machine-checkable Code
// and a human-readable Message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError returns an *Error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf returns an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error that keeps cause reachable through errors.Unwrap.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same Code, so a code-only value such as
// &Error{Code: CodeUnauthorized} can be used as an errors.Is target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the Code of the first *Error in err's chain, CodeInternal for
// any other non-nil error, and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// HTTPStatus maps a Code to the HTTP status a transport should respond with.
func HTTPStatus(code Code) int {
	switch code {
	case "":
		return http.StatusOK
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the attempt engine. The HTTP layer maps these to
// the JSON error envelope; callers branch on Code, not on message text.
const (
	CodeNotFound             = "not_found"
	CodeForbidden            = "forbidden"
	CodeUnauthorized         = "unauthorized"
	CodeAttemptNotActive     = "attempt_not_active"
	CodeAttemptExpired       = "attempt_expired"
	CodeAttemptLimitExceeded = "attempt_limit_exceeded"
	CodeInvalidResponseShape = "invalid_response_shape"
	CodeValidation           = "validation_error"
	CodeInternal             = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, fmt.Errorf(format, args...))
}

func AttemptNotActive(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeAttemptNotActive, fmt.Errorf(format, args...))
}

func AttemptExpired(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeAttemptExpired, fmt.Errorf(format, args...))
}

func AttemptLimitExceeded(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, CodeAttemptLimitExceeded, fmt.Errorf(format, args...))
}

func InvalidResponseShape(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodeInvalidResponseShape, fmt.Errorf(format, args...))
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// CodeOf returns the stable code of err when it is (or wraps) an *Error,
// otherwise "".
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

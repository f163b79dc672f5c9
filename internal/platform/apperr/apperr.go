package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable codes returned in the "error" field.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "rate_limited"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal_error"
)

// AppError is an error with an HTTP status and a client-safe message.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	status  int
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e == nil || e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

func BadRequest(msg string, err error) *AppError {
	return newAppError(CodeValidation, msg, err, http.StatusBadRequest)
}

func NotFound(msg string, err error) *AppError {
	return newAppError(CodeNotFound, msg, err, http.StatusNotFound)
}

func Conflict(msg string, err error) *AppError {
	return newAppError(CodeConflict, msg, err, http.StatusConflict)
}

func Unauthorized(msg string, err error) *AppError {
	return newAppError(CodeUnauthorized, msg, err, http.StatusUnauthorized)
}

func TooManyRequests(msg string) *AppError {
	return newAppError(CodeRateLimited, msg, nil, http.StatusTooManyRequests)
}

func Unavailable(msg string, err error) *AppError {
	return newAppError(CodeUnavailable, msg, err, http.StatusServiceUnavailable)
}

func Internal(msg string, err error) *AppError {
	return newAppError(CodeInternal, msg, err, http.StatusInternalServerError)
}

// FromError returns err as an *AppError, wrapping unknown errors as internal.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(http.StatusText(http.StatusInternalServerError), err)
}

func newAppError(code, msg string, err error, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Err:     err,
		status:  status,
	}
}

// Package apperror carries the error taxonomy shared by every handler:
// business rule violations, missing resources, validation failures and
// failed calls to external collaborators.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Fixed codes. Domain specific codes are declared by the owning packages.
const (
	CodeValidation   = "VALIDATION ERROR"
	CodeInternal     = "INTERNAL"
	CodeUnauthorized = "UNAUTHORIZED"
)

// AppError is an error with a client visible code and an HTTP status.
type AppError struct {
	code    string
	message string
	status  int
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string    { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Status() int     { return e.status }
func (e *AppError) Unwrap() error   { return e.err }

// New builds an AppError with an explicit status.
func New(status int, code, message string, err error) *AppError {
	return &AppError{code: code, message: message, status: status, err: err}
}

// BusinessRule is a rejected request that was well formed (reply to a reply,
// deletion already scheduled, editing someone else's comment).
func BusinessRule(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message, nil)
}

// NotFound is reported as 400 as well; clients switch on the code.
func NotFound(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message, nil)
}

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

// External wraps a failed call to an outside service (OAuth provider, link target).
func External(code, message string, err error) *AppError {
	return New(http.StatusBadRequest, code, message, err)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

// Wrap keeps the code of an existing AppError and treats anything else as internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return New(appErr.status, appErr.code, message, err)
	}
	return New(http.StatusInternalServerError, CodeInternal, message, err)
}

// From converts any error into an AppError.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

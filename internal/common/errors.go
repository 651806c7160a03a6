package common

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInternalServerError  = "INTERNAL_SERVER_ERROR"

	TokenExpiredDetail = "Token has expired. Please log in again."
	InternalDetail     = "Internal server error"
)

// AppError is a failure with a fixed HTTP status and client facing detail.
// Err keeps the underlying cause for logs and is never rendered.
type AppError struct {
	Status    int
	Detail    string
	ErrorCode string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Unauthorized(detail string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Detail: detail, ErrorCode: CodeAuthenticationFailed}
}

func TokenExpired() *AppError {
	return &AppError{Status: http.StatusUnauthorized, Detail: TokenExpiredDetail, ErrorCode: CodeTokenExpired}
}

func Forbidden(detail string) *AppError {
	return &AppError{Status: http.StatusForbidden, Detail: detail}
}

func NotFound(detail string) *AppError {
	return &AppError{Status: http.StatusNotFound, Detail: detail}
}

func PaymentRequired(detail string) *AppError {
	return &AppError{Status: http.StatusPaymentRequired, Detail: detail}
}

// Validation is a 400 for malformed or rejected input.
func Validation(detail string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Detail: detail}
}

// Unprocessable is a 422 for bodies that parse but miss required fields.
func Unprocessable(detail string) *AppError {
	return &AppError{Status: http.StatusUnprocessableEntity, Detail: detail}
}

func TooManyRequests(detail string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Detail: detail}
}

// Internal wraps an unexpected failure; the client only sees the generic detail.
func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Detail: InternalDetail, ErrorCode: CodeInternalServerError, Err: err}
}

// AsAppError unwraps err to an *AppError when one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

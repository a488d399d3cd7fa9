// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrUnavailable   = errors.New("service unavailable")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrUpstreamError = errors.New("upstream error")
)

// AppError is an error that knows how it should be rendered to a client.
type AppError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "BAD_REQUEST", message, ErrInvalidInput)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		http.StatusNotFound,
		"NOT_FOUND",
		resource+" not found",
		ErrNotFound,
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		http.StatusConflict,
		"DUPLICATE",
		field+" already exists",
		ErrDuplicateKey,
	)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		message,
		ErrUnauthorized,
	)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, "FORBIDDEN", message, ErrForbidden)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
		"token has expired",
		ErrTokenExpired,
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		http.StatusUnauthorized,
		"TOKEN_INVALID",
		"token is invalid",
		ErrTokenInvalid,
	)
}

func UpstreamError(message string) *AppError {
	return NewAppError(
		http.StatusBadGateway,
		"UPSTREAM_ERROR",
		message,
		ErrUpstreamError,
	)
}

func UnavailableError(message string) *AppError {
	return NewAppError(
		http.StatusServiceUnavailable,
		"SERVICE_UNAVAILABLE",
		message,
		ErrUnavailable,
	)
}

func InternalError(err error) *AppError {
	return NewAppError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"an internal error occurred",
		err,
	)
}

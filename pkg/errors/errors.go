// Package errors defines the sentinel errors shared across the quote service
// and the AppError type that carries an HTTP status alongside a message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotReady          = errors.New("quote index not ready")
	ErrLoadFailed        = errors.New("quote load failed")
	ErrMalformedRecord   = errors.New("malformed quote record")
	ErrInvalidTimestamp  = errors.New("invalid upload timestamp")
	ErrDuplicateID       = errors.New("duplicate quote id")
	ErrSourceUnavailable = errors.New("quote source unavailable")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrInvalidTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrLoadFailed),
		errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

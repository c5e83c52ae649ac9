package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrExternalUnavailable = &AppError{
		Code:       "EXTERNAL_UNAVAILABLE",
		Message:    "Upstream service unavailable",
		StatusCode: http.StatusBadGateway,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var bulkErr *BulkError
	if errors.As(err, &bulkErr) {
		return &AppError{
			Code:       "PARTIAL_BATCH_FAILURE",
			Message:    bulkErr.Error(),
			StatusCode: http.StatusMultiStatus,
			Internal:   bulkErr,
		}
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewNotFound builds a NotFound error with a resource-specific message.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:       ErrNotFound.Code,
		Message:    message,
		StatusCode: ErrNotFound.StatusCode,
	}
}

// NewConflict builds a Conflict error with a resource-specific message.
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       ErrConflict.Code,
		Message:    message,
		StatusCode: ErrConflict.StatusCode,
	}
}

// BulkFailure describes a single failed row within a bulk operation.
type BulkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BulkError reports a partially failed bulk operation. Rows outside Failures
// were committed; callers may retry only the failed subset.
type BulkError struct {
	Op        string        `json:"op"`
	Succeeded int           `json:"succeeded"`
	Failures  []BulkFailure `json:"failures"`
}

func (e *BulkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("row %d: %s", f.Index, f.Reason))
	}
	return fmt.Sprintf("%s: %d of %d rows failed (%s)",
		e.Op, len(e.Failures), e.Succeeded+len(e.Failures), strings.Join(parts, "; "))
}

// HasFailures reports whether the bulk operation recorded any failed rows.
func (e *BulkError) HasFailures() bool {
	return e != nil && len(e.Failures) > 0
}

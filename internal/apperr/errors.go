// Package apperr implements the error taxonomy from spec.md §7: a closed
// set of categories, each with a fixed HTTP status and retry policy.
package apperr

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of error categories.
type Type string

const (
	BadInput     Type = "BAD_INPUT"
	Unauthorized Type = "UNAUTHORIZED"
	Forbidden    Type = "FORBIDDEN"
	Conflict     Type = "CONFLICT"
	RateLimited  Type = "RATE_LIMITED"
	Internal     Type = "INTERNAL"
)

// httpStatusByType is the fixed recovery policy table from spec.md §7.
var httpStatusByType = map[Type]int{
	BadInput:     http.StatusBadRequest,
	Unauthorized: http.StatusUnauthorized,
	Forbidden:    http.StatusForbidden,
	Conflict:     http.StatusConflict,
	RateLimited:  http.StatusTooManyRequests,
	Internal:     http.StatusInternalServerError,
}

// retryableByType marks categories the caller may safely retry.
var retryableByType = map[Type]bool{
	BadInput:     false,
	Unauthorized: false,
	Forbidden:    false,
	Conflict:     false,
	RateLimited:  true,
	Internal:     true,
}

// Error is the standardized error structure used across the service's HTTP
// surface and internal error propagation.
type Error struct {
	ID         string                 `json:"errorId"`
	Type       Type                   `json:"type"`
	Code       string                 `json:"code,omitempty"`
	Message    string                 `json:"message"`
	HTTPStatus int                    `json:"-"`
	Retryable  bool                   `json:"retryable"`
	RetryAfter *time.Duration         `json:"retryAfterSeconds,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.As/errors.Is.
func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given type.
func New(t Type, code, message string) *Error {
	return &Error{
		ID:         uuid.New().String(),
		Type:       t,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatusByType[t],
		Retryable:  retryableByType[t],
	}
}

// Wrap constructs an Error of the given type, chaining an underlying cause.
func Wrap(t Type, code, message string, cause error) *Error {
	e := New(t, code, message)
	e.Cause = cause
	return e
}

// WithRetryAfter attaches a Retry-After duration, used for RateLimited (429)
// responses.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = &d
	return e
}

// WithMetadata attaches arbitrary structured context.
func (e *Error) WithMetadata(md map[string]interface{}) *Error {
	e.Metadata = md
	return e
}

// Convenience constructors for the categories named in spec.md §7.

func NewBadInput(code, message string) *Error { return New(BadInput, code, message) }

func NewUnauthorized(code, message string) *Error { return New(Unauthorized, code, message) }

func NewForbidden(code, message string) *Error { return New(Forbidden, code, message) }

func NewConflict(code, message string) *Error { return New(Conflict, code, message) }

func NewRateLimited(code, message string, retryAfter time.Duration) *Error {
	return New(RateLimited, code, message).WithRetryAfter(retryAfter)
}

func NewInternal(code, message string, cause error) *Error {
	return Wrap(Internal, code, message, cause)
}

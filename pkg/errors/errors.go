// Package errors defines the storefront's error vocabulary: sentinel errors
// for each failure class and AppError, which pairs a class with the public
// code, message and HTTP status reported to the shopper.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrUnprocessable  = errors.New("unprocessable request")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrUpstream       = errors.New("upstream failure")
	ErrInternal       = errors.New("internal error")
)

// class ties a sentinel to its public code and status.
type class struct {
	sentinel error
	code     string
	status   int
}

// classes is checked in order; the first sentinel matched by errors.Is wins.
var classes = []class{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrConflict, "CONFLICT", http.StatusConflict},
	{ErrGone, "GONE", http.StatusGone},
	{ErrUnprocessable, "UNPROCESSABLE", http.StatusUnprocessableEntity},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
	{ErrUpstream, "UPSTREAM_ERROR", http.StatusBadGateway},
}

var internal = class{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError}

func classify(err error) class {
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			return c
		}
	}
	return internal
}

// AppError is an error with a public code and message and the HTTP status
// it maps to. Err carries the class sentinel and any underlying cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
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

// New builds an AppError of the class identified by sentinel. An unknown
// sentinel yields an internal error.
func New(sentinel error, message string) *AppError {
	c := classify(sentinel)
	return &AppError{Code: c.code, Message: message, Status: c.status, Err: sentinel}
}

// NotFound reports a missing resource, e.g. NotFound("product", "p-1").
func NotFound(resource, id string) *AppError {
	return New(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

func InvalidInput(message string) *AppError { return New(ErrInvalidInput, message) }

func Unauthorized(message string) *AppError { return New(ErrUnauthorized, message) }

func Forbidden(message string) *AppError { return New(ErrForbidden, message) }

func Conflict(message string) *AppError { return New(ErrConflict, message) }

// Gone reports an expired storefront session.
func Gone(message string) *AppError { return New(ErrGone, message) }

// Unprocessable reports a request the upstream understood but refused, such
// as a cart add beyond available stock.
func Unprocessable(message string) *AppError { return New(ErrUnprocessable, message) }

func ServiceUnavailable(message string) *AppError { return New(ErrServiceUnavail, message) }

// Upstream reports a failed call to the cart or catalog API. The cause stays
// reachable through errors.Is and errors.As.
func Upstream(message string, err error) *AppError {
	e := New(ErrUpstream, message)
	e.Err = fmt.Errorf("%w: %w", ErrUpstream, err)
	return e
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return &AppError{Code: internal.code, Message: "an internal error occurred", Status: internal.status, Err: err}
}

// HTTPStatus returns the status an error maps to. AppErrors keep their own
// status; other errors are classified by sentinel and default to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return classify(err).status
}

// Code returns the public error code for err.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return classify(err).code
}

// Package httputil writes the storefront's JSON envelopes:
// {"data": ...} on success and {"error": {...}} on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the envelope of every JSON body the service writes.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the "error" member of Response. RequestID echoes the
// correlation id so shoppers can quote it to support.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status. Encoding errors are dropped
// because the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr writes an error envelope stamped with the request's correlation id.
func writeErr(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	body.RequestID = logger.CorrelationIDFromContext(r.Context())
	WriteJSON(w, status, Response{Error: &body})
}

// WriteError maps err to a status and public code and writes the error
// envelope. AppErrors keep their message; sentinel errors show the sentinel
// text, or the full error for invalid input; anything else is reported as an
// internal error. Failures at 500 and above are logged with the request
// logger when one is in context, else with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status := apperrors.HTTPStatus(err)
	body := ErrorResponse{Code: apperrors.Code(err), Message: publicMessage(err, status)}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", body.Code),
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeErr(w, r, status, body)
}

func publicMessage(err error, status int) string {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.Is(err, apperrors.ErrInvalidInput):
		return err.Error()
	case status == http.StatusInternalServerError:
		return "an internal error occurred"
	}
	for _, sentinel := range []error{
		apperrors.ErrNotFound, apperrors.ErrUnauthorized, apperrors.ErrForbidden,
		apperrors.ErrConflict, apperrors.ErrGone, apperrors.ErrUnprocessable,
		apperrors.ErrServiceUnavail, apperrors.ErrUpstream,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(status)
}

// WriteValidationError writes a 400 listing the offending fields when err
// came from the validator package.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeErr(w, r, http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		})
		return
	}
	writeErr(w, r, http.StatusBadRequest, ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()})
}

// ParseUUID parses param, writing a 400 INVALID_PARAMETER response and
// returning false when it is not a UUID.
func ParseUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_PARAMETER",
			Message: "invalid UUID: " + param,
		})
		return uuid.Nil, false
	}
	return id, true
}

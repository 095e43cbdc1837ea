package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// StatusError is returned by CircuitBreakerClient.Do when the upstream
// answers 5xx. The body has already been read and the response closed.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// envelope is the {"error": {...}} body the cart and catalog APIs send.
type envelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and converts it
// with DecodeError.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Upstream(
			fmt.Sprintf("%s returned status %d", service, resp.StatusCode),
			fmt.Errorf("read error body: %w", err),
		)
	}
	return DecodeError(resp.StatusCode, body, service)
}

// DecodeError maps an upstream status and body to an AppError carrying the
// same failure class. The upstream message is kept when the body is the
// standard error envelope; otherwise the status text stands in for it.
func DecodeError(status int, body []byte, service string) error {
	code, message := "", http.StatusText(status)
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		code = env.Error.Code
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}
	qualified := service + ": " + message

	switch status {
	case http.StatusNotFound:
		return apperrors.New(apperrors.ErrNotFound, qualified)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case http.StatusConflict:
		return apperrors.Conflict(qualified)
	case http.StatusGone:
		return apperrors.Gone(qualified)
	case http.StatusUnprocessableEntity:
		return apperrors.Unprocessable(qualified)
	case http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	}

	if status >= http.StatusInternalServerError {
		return apperrors.Upstream(qualified, &StatusError{StatusCode: status, Body: body})
	}
	if code == "" {
		code = "UPSTREAM_" + strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_")
	}
	return &apperrors.AppError{Code: code, Message: qualified, Status: status}
}

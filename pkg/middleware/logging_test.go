package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	RequestLogging(jsonLogger(&buf))(statusHandler(http.StatusOK)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/storefront/cart", nil))

	id := rec.Header().Get(CorrelationHeader)
	require.NotEmpty(t, id)

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, id, entry["correlation_id"])
	assert.Equal(t, "/api/v1/storefront/cart", entry["path"])
	assert.EqualValues(t, 200, entry["status"])
	assert.EqualValues(t, 4, entry["bytes"])
}

func TestRequestLogging_KeepsCallerCorrelationID(t *testing.T) {
	var seen string
	h := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-123", seen)
	assert.Equal(t, "corr-123", rec.Header().Get(CorrelationHeader))
}

func TestRequestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		code  int
		level string
	}{
		{http.StatusCreated, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			var buf bytes.Buffer
			RequestLogging(jsonLogger(&buf))(statusHandler(tt.code)).
				ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/storefront/cart/items", nil))
			assert.Equal(t, tt.level, decodeLogLine(t, &buf)["level"])
		})
	}
}

func TestRequestLogging_SkipsHealthChecksUnlessFailing(t *testing.T) {
	var buf bytes.Buffer
	RequestLogging(jsonLogger(&buf))(statusHandler(http.StatusOK)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, buf.String())

	RequestLogging(jsonLogger(&buf))(statusHandler(http.StatusServiceUnavailable)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestRequestLogger_StoresEnrichedLogger(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(discardLogger())(
		Auth(fakeValidator)(
			RequestLogger(jsonLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.FromContext(r.Context()).Info("handled")
			})),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	req.Header.Set(CorrelationHeader, "corr-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "handled", entry["msg"])
	assert.Equal(t, "corr-9", entry["correlation_id"])
	assert.Equal(t, "u-customer", entry["user_id"])
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogging(discardLogger())(Recovery(jsonLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/storefront/session", nil)
	req.Header.Set(CorrelationHeader, "corr-panic")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "corr-panic", body.Error.RequestID)
	assert.True(t, strings.Contains(buf.String(), "panic recovered"))
}

func TestRecovery_ReraisesAbort(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBreaker(name string) *CircuitBreakerClient {
	return NewCircuitBreakerClient(New(fastConfig(0)), CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, discardLogger())
}

// switchServer answers with the status held in code.
func switchServer(t *testing.T, code *atomic.Int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(code.Load()))
		_, _ = w.Write([]byte(`{"error":{"code":"X","message":"cart store offline"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func get(t *testing.T, cb *CircuitBreakerClient, ctx context.Context, url string) (*http.Response, error) {
	t.Helper()
	req, err := NewJSONRequest(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := cb.Do(ctx, req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestCircuitBreaker_ServerErrorBecomesStatusError(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusServiceUnavailable)
	srv, _ := switchServer(t, &code)

	_, err := get(t, testBreaker("cb-status"), context.Background(), srv.URL)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Contains(t, string(se.Body), "cart store offline")
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusInternalServerError)
	srv, calls := switchServer(t, &code)
	cb := testBreaker("cb-cycle")
	ctx := context.Background()

	for range 2 {
		_, _ = get(t, cb, ctx, srv.URL)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := get(t, cb, ctx, srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the upstream")

	code.Store(http.StatusOK)
	time.Sleep(80 * time.Millisecond)

	resp, err := get(t, cb, ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusUnprocessableEntity)
	srv, _ := switchServer(t, &code)
	cb := testBreaker("cb-4xx")

	for range 5 {
		resp, err := get(t, cb, context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	cb := testBreaker("cb-cancel")

	for range 3 {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)
		_, err := get(t, cb, ctx, srv.URL)
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Name(t *testing.T) {
	assert.Equal(t, "catalog-api", testBreaker("catalog-api").Name())
	assert.Equal(t, "cart-api", DefaultCircuitBreakerConfig("cart-api").Name)
}

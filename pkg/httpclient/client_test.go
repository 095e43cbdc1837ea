package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func fastConfig(retries int) Config {
	return Config{
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 4,
	}
}

// sequenceServer answers with codes in order, repeating the last one.
func sequenceServer(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		w.WriteHeader(codes[min(n, len(codes)-1)])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func send(t *testing.T, c *Client, method, url string, body any) (*http.Response, error) {
	t.Helper()
	req, err := NewJSONRequest(context.Background(), method, url, body)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req)
	if resp != nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestDo_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		codes     []int
		wantCode  int
		wantCalls int32
	}{
		{"get retries 5xx until success", http.MethodGet, []int{500, 502, 200}, 200, 3},
		{"get gives up after max retries", http.MethodGet, []int{503}, 503, 3},
		{"get retries 429", http.MethodGet, []int{429, 200}, 200, 2},
		{"501 is final", http.MethodGet, []int{501}, 501, 1},
		{"4xx is final", http.MethodGet, []int{404}, 404, 1},
		{"put is retried", http.MethodPut, []int{500, 200}, 200, 2},
		{"delete is retried", http.MethodDelete, []int{502, 200}, 200, 2},
		{"post is never retried", http.MethodPost, []int{500, 200}, 500, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := sequenceServer(t, tt.codes...)

			resp, err := send(t, New(fastConfig(2)), tt.method, srv.URL, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDo_RetryResendsBody(t *testing.T) {
	var bodies []string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := send(t, New(fastConfig(1)), http.MethodPut, srv.URL, map[string]int{"quantity": 2})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"quantity":2}`, `{"quantity":2}`}, bodies)
}

func TestDo_UnreachableReportsAttempts(t *testing.T) {
	_, err := send(t, New(fastConfig(1)), http.MethodGet, "http://127.0.0.1:1/cart", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	srv, calls := sequenceServer(t, http.StatusServiceUnavailable)
	cfg := fastConfig(3)
	cfg.RetryWaitMin, cfg.RetryWaitMax = time.Second, time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := NewJSONRequest(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = New(cfg).Do(ctx, req)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	}))
	req, err := NewJSONRequest(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := New(fastConfig(0)).Do(ctx, req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "00-4bf90000000000000000000000000000-0100000000000000-01", got)
}

func TestNewJSONRequest(t *testing.T) {
	req, err := NewJSONRequest(context.Background(), http.MethodPost, "http://cart/api/v1/cart/items", map[string]any{"product_id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	require.NotNil(t, req.GetBody, "body must be rewindable for retries")

	req, err = NewJSONRequest(context.Background(), http.MethodDelete, "http://cart/api/v1/cart", nil)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("Content-Type"))

	_, err = NewJSONRequest(context.Background(), http.MethodPost, "http://cart", make(chan int))
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
}

func TestWait_RetryAfterCappedByMax(t *testing.T) {
	c := New(fastConfig(1))
	start := time.Now()
	require.NoError(t, c.wait(context.Background(), 1, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAddJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for range 200 {
		d := addJitter(base)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
	assert.Zero(t, addJitter(0))
	assert.Equal(t, time.Nanosecond, addJitter(time.Nanosecond))
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&timeoutError{}))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

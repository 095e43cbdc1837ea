package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBreakerClient(name string) *httpclient.CircuitBreakerClient {
	client := httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0, MaxConnsPerHost: 10})
	return httpclient.NewCircuitBreakerClient(client, httpclient.CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Second,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, newTestLogger())
}

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	CorrelationID string
	Body          map[string]any
}

type recorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (r *recorder) add(rec recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, rec)
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.reqs...)
}

// newCartAPIServer mounts a fake cart API that records requests and answers
// every route with respond.
func newCartAPIServer(t *testing.T, status int, respond string) (*httptest.Server, *recorder) {
	t.Helper()
	seen := &recorder{}

	handler := func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			CorrelationID: r.Header.Get("X-Correlation-ID"),
		}
		if r.ContentLength > 0 {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&rec.Body))
		}
		seen.add(rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respond))
	}

	r := chi.NewRouter()
	r.Get("/api/v1/cart", handler)
	r.Delete("/api/v1/cart", handler)
	r.Post("/api/v1/cart/items", handler)
	r.Put("/api/v1/cart/items/{productId}", handler)
	r.Delete("/api/v1/cart/items/{productId}", handler)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, seen
}

func TestCartClient_Routes(t *testing.T) {
	const body = `{"data":{"items":[]}}`
	server, seen := newCartAPIServer(t, http.StatusOK, body)
	c := NewCartClient(newBreakerClient("cart-routes"), server.URL, TokenFunc(func() string { return "tok-1" }))
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	got, err := c.GetCart(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(got))

	_, err = c.AddToCart(ctx, "p1", 2)
	require.NoError(t, err)
	_, err = c.UpdateQuantity(ctx, "p1", 5)
	require.NoError(t, err)
	_, err = c.RemoveFromCart(ctx, "p1")
	require.NoError(t, err)
	_, err = c.ClearCart(ctx)
	require.NoError(t, err)

	reqs := seen.all()
	require.Len(t, reqs, 5)

	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/api/v1/cart", reqs[0].Path)

	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, "/api/v1/cart/items", reqs[1].Path)
	assert.Equal(t, "p1", reqs[1].Body["product_id"])
	assert.Equal(t, float64(2), reqs[1].Body["quantity"])

	assert.Equal(t, http.MethodPut, reqs[2].Method)
	assert.Equal(t, "/api/v1/cart/items/p1", reqs[2].Path)
	assert.Equal(t, float64(5), reqs[2].Body["quantity"])

	assert.Equal(t, http.MethodDelete, reqs[3].Method)
	assert.Equal(t, "/api/v1/cart/items/p1", reqs[3].Path)

	assert.Equal(t, http.MethodDelete, reqs[4].Method)
	assert.Equal(t, "/api/v1/cart", reqs[4].Path)

	for _, r := range reqs {
		assert.Equal(t, "Bearer tok-1", r.Authorization)
		assert.Equal(t, "corr-1", r.CorrelationID)
	}
}

func TestCartClient_NoTokenSendsNoAuthorization(t *testing.T) {
	server, seen := newCartAPIServer(t, http.StatusOK, `[]`)
	c := NewCartClient(newBreakerClient("cart-no-token"), server.URL, TokenFunc(func() string { return "" }))

	_, err := c.GetCart(context.Background())
	require.NoError(t, err)

	reqs := seen.all()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Authorization)
}

func TestCartClient_ClientErrorMapped(t *testing.T) {
	server, _ := newCartAPIServer(t, http.StatusUnprocessableEntity,
		`{"error":{"code":"INSUFFICIENT_STOCK","message":"only 1 left"}}`)
	c := NewCartClient(newBreakerClient("cart-422"), server.URL, TokenFunc(func() string { return "tok" }))

	_, err := c.AddToCart(context.Background(), "p1", 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnprocessable))
	assert.Contains(t, err.Error(), "only 1 left")
}

func TestCartClient_ServerErrorIsUpstream(t *testing.T) {
	server, _ := newCartAPIServer(t, http.StatusInternalServerError, `boom`)
	c := NewCartClient(newBreakerClient("cart-500"), server.URL, TokenFunc(func() string { return "tok" }))

	_, err := c.GetCart(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

func TestCartClient_OpenCircuitIsServiceUnavailable(t *testing.T) {
	server, seen := newCartAPIServer(t, http.StatusInternalServerError, `boom`)
	c := NewCartClient(newBreakerClient("cart-open"), server.URL, TokenFunc(func() string { return "tok" }))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = c.GetCart(ctx)
	}

	_, err := c.GetCart(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Len(t, seen.all(), 2)
}

func TestCartClient_UnreachableIsUpstream(t *testing.T) {
	c := NewCartClient(newBreakerClient("cart-unreachable"), "http://127.0.0.1:1", TokenFunc(func() string { return "tok" }))

	_, err := c.GetCart(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
}

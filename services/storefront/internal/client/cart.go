// Package client holds the HTTP collaborators the storefront talks to: the
// remote cart API and the product catalog.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	cartServiceName = "cart-api"

	// maxBodyBytes caps how much of a response body is read into memory.
	maxBodyBytes = 4 << 20
)

// TokenSource supplies the bearer token for a request. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token calls f.
func (f TokenFunc) Token() string { return f() }

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartClient talks to the remote cart REST API on behalf of one session.
// Response bodies are returned raw; decoding is left to the caller.
type CartClient struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	tokens  TokenSource
}

// NewCartClient creates a cart API client. The breaker client is shared by
// every session; tokens is per session.
func NewCartClient(http *httpclient.CircuitBreakerClient, baseURL string, tokens TokenSource) *CartClient {
	return &CartClient{http: http, baseURL: baseURL, tokens: tokens}
}

// GetCart fetches the shopper's cart.
func (c *CartClient) GetCart(ctx context.Context) ([]byte, error) {
	return c.send(ctx, http.MethodGet, "/api/v1/cart", nil)
}

// AddToCart adds quantity units of a product.
func (c *CartClient) AddToCart(ctx context.Context, productID string, quantity int) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "/api/v1/cart/items", addItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
}

// RemoveFromCart removes a product's line.
func (c *CartClient) RemoveFromCart(ctx context.Context, productID string) ([]byte, error) {
	return c.send(ctx, http.MethodDelete, "/api/v1/cart/items/"+url.PathEscape(productID), nil)
}

// UpdateQuantity sets a line's quantity.
func (c *CartClient) UpdateQuantity(ctx context.Context, productID string, quantity int) ([]byte, error) {
	return c.send(ctx, http.MethodPut, "/api/v1/cart/items/"+url.PathEscape(productID), updateQuantityRequest{
		Quantity: quantity,
	})
}

// ClearCart empties the cart.
func (c *CartClient) ClearCart(ctx context.Context) ([]byte, error) {
	return c.send(ctx, http.MethodDelete, "/api/v1/cart", nil)
}

func (c *CartClient) send(ctx context.Context, method, path string, body any) ([]byte, error) {
	req, err := httpclient.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(ctx, c.http, req, cartServiceName)
}

// do executes req through the breaker and returns the body of a 2xx
// response. Transport failures and non-2xx statuses become AppErrors.
func do(ctx context.Context, cb *httpclient.CircuitBreakerClient, req *http.Request, service string) ([]byte, error) {
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := cb.Do(ctx, req)
	var statusErr *httpclient.StatusError
	switch {
	case errors.As(err, &statusErr):
		return nil, httpclient.DecodeError(statusErr.StatusCode, statusErr.Body, service)
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return nil, apperrors.ServiceUnavailable(service + " is unavailable")
	case err != nil:
		return nil, apperrors.Upstream(fmt.Sprintf("%s %s %s failed", service, req.Method, req.URL.Path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, service)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Upstream("read "+service+" response", err)
	}
	return payload, nil
}

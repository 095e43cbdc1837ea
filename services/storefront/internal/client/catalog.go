package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/normalize"
)

const (
	catalogServiceName = "catalog-api"

	productsKey = "products"
	productKey  = "product"
)

// ListParams filters a product listing.
type ListParams struct {
	pagination.Params
	Category string
	Search   string
}

// CatalogClient reads products from the catalog API. Catalog reads are
// public and carry no token.
type CatalogClient struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
	sf      singleflight.Group
}

// NewCatalogClient creates a catalog API client.
func NewCatalogClient(http *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{http: http, baseURL: baseURL, logger: logger}
}

// ListProducts returns one page of products. Records that do not decode as a
// product are skipped.
func (c *CatalogClient) ListProducts(ctx context.Context, params ListParams) ([]domain.Product, error) {
	q := url.Values{}
	params.Encode(q)
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	target := c.baseURL + "/api/v1/products"
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	res := normalize.Decode(body, productsKey)
	if !res.Recognized() {
		c.logger.DebugContext(ctx, "catalog list payload unrecognized",
			slog.String("shape", res.Shape.String()),
		)
	}
	return normalize.Into[domain.Product](res), nil
}

// GetProduct fetches a single product. Concurrent fetches of the same id
// share one upstream request.
func (c *CatalogClient) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	v, err, shared := c.sf.Do(id, func() (any, error) {
		body, err := c.get(ctx, c.baseURL+"/api/v1/products/"+url.PathEscape(id))
		if err != nil {
			return nil, err
		}

		raw, ok := normalize.Record(body, productKey)
		if !ok {
			return nil, apperrors.NotFound("product", id)
		}
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperrors.Upstream(fmt.Sprintf("decode product %s", id), err)
		}
		if p.ID == "" {
			return nil, apperrors.NotFound("product", id)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "product fetch shared", slog.String("product_id", id))
	}

	// Callers may mutate the product; hand each one its own copy.
	p := *v.(*domain.Product)
	return &p, nil
}

func (c *CatalogClient) get(ctx context.Context, target string) ([]byte, error) {
	req, err := httpclient.NewJSONRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return do(ctx, c.http, req, catalogServiceName)
}

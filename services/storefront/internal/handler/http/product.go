package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/services/storefront/internal/client"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/service"
)

// ProductHandler serves catalog reads for shoppers and the back office.
type ProductHandler struct {
	catalog service.Catalog
	views   *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(catalog service.Catalog, views *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, views: views, logger: logger}
}

// productPage is one page of a product listing. The catalog does not report
// a total, so only the requested window is echoed back.
type productPage[T any] struct {
	Products []T `json:"products"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
}

// adminProductView exposes the stored specification text next to its
// decoded form so broken records can be spotted and fixed.
type adminProductView struct {
	service.ProductView
	RawSpecifications json.RawMessage `json:"raw_specifications,omitempty"`
}

func listParams(r *http.Request) client.ListParams {
	q := r.URL.Query()
	return client.ListParams{
		Params:   pagination.FromRequest(r),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
}

// ListProducts handles GET /api/v1/storefront/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	params := listParams(r)

	views, err := h.views.List(r.Context(), params, sf.Wishlist)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: productPage[service.ProductView]{
		Products: views,
		Page:     params.Page,
		PerPage:  params.PerPage,
	}})
}

// GetProduct handles GET /api/v1/storefront/products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())

	view, err := h.views.Get(r.Context(), chi.URLParam(r, "productId"), sf.Wishlist)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// AdminListProducts handles GET /api/v1/admin/products
func (h *ProductHandler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)

	products, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	views := lo.Map(products, func(p domain.Product, _ int) adminProductView {
		return adminProductView{
			ProductView:       service.NewProductView(r.Context(), &p, nil),
			RawSpecifications: p.Specifications,
		}
	})

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: productPage[adminProductView]{
		Products: views,
		Page:     params.Page,
		PerPage:  params.PerPage,
	}})
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(logger *slog.Logger) *CartHandler {
	return &CartHandler{logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for updating an item's
// quantity. Zero removes the item.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/storefront/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(sf)})
}

// Sync handles POST /api/v1/storefront/cart/sync
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	if err := sf.Cart.Sync(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(sf)})
}

// AddItem handles POST /api/v1/storefront/cart/items. A signed-out shopper
// gets 202 Accepted: the add is parked until login.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())

	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	deferred := !sf.Auth.IsAuthenticated()
	if err := sf.Cart.Add(r.Context(), req.ProductID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if deferred {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: newCartView(sf)})
}

// UpdateItemQuantity handles PUT /api/v1/storefront/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	var req UpdateQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := sf.Cart.UpdateQuantity(r.Context(), productID, req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(sf)})
}

// RemoveItem handles DELETE /api/v1/storefront/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	if err := sf.Cart.Remove(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(sf)})
}

// ClearCart handles DELETE /api/v1/storefront/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	if err := sf.Cart.Clear(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newCartView(sf)})
}

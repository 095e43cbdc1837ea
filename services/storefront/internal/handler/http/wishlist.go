package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
)

// WishlistHandler handles HTTP requests for the session wishlist. The
// wishlist lives only in session memory, so none of these touch the network.
type WishlistHandler struct{}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler() *WishlistHandler {
	return &WishlistHandler{}
}

// AddWishlistItemRequest carries the product reference the browser already
// holds from the catalog listing.
type AddWishlistItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Name      string           `json:"name" validate:"max=500"`
	Price     decimal.Decimal  `json:"price"`
	Discount  *domain.Discount `json:"discount"`
	Images    []string         `json:"images"`
}

// GetWishlist handles GET /api/v1/storefront/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newWishlistView(sf)})
}

// AddItem handles POST /api/v1/storefront/wishlist/items. Adding a product
// that is already present returns 200 and changes nothing.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())

	var req AddWishlistItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	added := sf.Wishlist.Add(domain.Product{
		ID:       req.ProductID,
		Name:     req.Name,
		Price:    req.Price,
		Discount: req.Discount,
		Images:   req.Images,
	})

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: newWishlistView(sf)})
}

// RemoveItem handles DELETE /api/v1/storefront/wishlist/items/{productId}.
// Removing an absent product is not an error.
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	sf.Wishlist.Remove(chi.URLParam(r, "productId"))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newWishlistView(sf)})
}

// ClearWishlist handles DELETE /api/v1/storefront/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	sf.Wishlist.Clear()
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newWishlistView(sf)})
}

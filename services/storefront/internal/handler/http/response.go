package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/service"
)

const maxBodyBytes = 1 << 20

// cartView is the cart as returned to the browser.
type cartView struct {
	Status        string            `json:"status"`
	Items         []domain.CartLine `json:"items"`
	TotalItems    int               `json:"total_items"`
	TotalPrice    decimal.Decimal   `json:"total_price"`
	LoginRequired bool              `json:"login_required"`
	Error         string            `json:"error,omitempty"`
}

func newCartView(sf *service.Storefront) cartView {
	snap := sf.Cart.Snapshot()
	view := cartView{
		Status:        snap.Status.String(),
		Items:         snap.Items,
		TotalItems:    snap.TotalItems,
		TotalPrice:    snap.TotalPrice,
		LoginRequired: sf.Auth.LoginPrompted(),
	}
	if err := sf.Cart.Err(); err != nil {
		view.Error = err.Error()
	}
	return view
}

// wishlistView is the wishlist as returned to the browser.
type wishlistView struct {
	Items []domain.WishlistEntry `json:"items"`
	Count int                    `json:"count"`
}

func newWishlistView(sf *service.Storefront) wishlistView {
	items := sf.Wishlist.Items()
	return wishlistView{Items: items, Count: len(items)}
}

// sessionView summarises a storefront session.
type sessionView struct {
	ID                   string       `json:"id"`
	Authenticated        bool         `json:"authenticated"`
	UserID               string       `json:"user_id,omitempty"`
	Role                 string       `json:"role,omitempty"`
	LoginPrompted        bool         `json:"login_prompted"`
	PendingAction        bool         `json:"pending_action"`
	Cart                 cartView     `json:"cart"`
	Wishlist             wishlistView `json:"wishlist"`
	PendingNotifications int          `json:"pending_notifications"`
}

func newSessionView(sf *service.Storefront) sessionView {
	return sessionView{
		ID:                   sf.ID,
		Authenticated:        sf.Auth.IsAuthenticated(),
		UserID:               sf.Auth.UserID(),
		Role:                 sf.Auth.Role(),
		LoginPrompted:        sf.Auth.LoginPrompted(),
		PendingAction:        sf.Auth.HasPendingAction(),
		Cart:                 newCartView(sf),
		Wishlist:             newWishlistView(sf),
		PendingNotifications: sf.Toasts.Len(),
	}
}

// decodeBody decodes and validates a JSON request body. It writes the error
// response and returns false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	if err := validator.Validate(v); err != nil {
		httputil.WriteValidationError(w, r, err)
		return false
	}
	return true
}

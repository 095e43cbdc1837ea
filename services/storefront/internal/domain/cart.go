package domain

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CartLine is a single product and quantity held in a session's cart. The
// remote cart API is the source of truth; lines are replaced wholesale on
// every successful round-trip.
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}

// UnmarshalJSON accepts the product reference as an embedded object, a bare
// product id, or flattened product_id/name/price fields.
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var aux struct {
		Product   json.RawMessage  `json:"product"`
		Quantity  int              `json:"quantity"`
		ProductID string           `json:"product_id"`
		CamelID   string           `json:"productId"`
		Name      string           `json:"name"`
		Price     *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	l.Quantity = aux.Quantity
	l.Product = nil

	if len(aux.Product) > 0 && string(aux.Product) != "null" {
		var id string
		if err := json.Unmarshal(aux.Product, &id); err == nil {
			l.Product = &Product{ID: id}
			return nil
		}
		var p Product
		if err := json.Unmarshal(aux.Product, &p); err != nil {
			return err
		}
		l.Product = &p
		return nil
	}

	id := lo.CoalesceOrEmpty(aux.ProductID, aux.CamelID)
	if id == "" {
		return nil
	}
	l.Product = &Product{ID: id, Name: aux.Name}
	if aux.Price != nil {
		l.Product.Price = *aux.Price
	}
	return nil
}

// ProductID returns the referenced product id, or "" when the line carries
// no product reference.
func (l CartLine) ProductID() string {
	if l.Product == nil {
		return ""
	}
	return l.Product.ID
}

// Subtotal is quantity times the effective unit price. A line without a
// product reference contributes zero.
func (l CartLine) Subtotal() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PositiveLines drops lines whose quantity is zero or negative. Lines kept
// in session state always carry a positive quantity.
func PositiveLines(lines []CartLine) []CartLine {
	return lo.Filter(lines, func(l CartLine, _ int) bool { return l.Quantity > 0 })
}

// TotalItems returns the sum of quantities across lines.
func TotalItems(lines []CartLine) int {
	return lo.SumBy(lines, func(l CartLine) int { return l.Quantity })
}

// TotalPrice returns the sum of line subtotals.
func TotalPrice(lines []CartLine) decimal.Decimal {
	return lo.Reduce(lines, func(acc decimal.Decimal, l CartLine, _ int) decimal.Decimal {
		return acc.Add(l.Subtotal())
	}, decimal.Zero)
}

// WishlistEntry is a product the shopper saved for later. Wishlists live in
// session memory only.
type WishlistEntry struct {
	Product Product   `json:"product"`
	AddedAt time.Time `json:"added_at"`
}

// SessionRecord is the persisted part of a storefront session: the identity
// token. Carts and wishlists are never persisted with it.
type SessionRecord struct {
	ID        string    `json:"id"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

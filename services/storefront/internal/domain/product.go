package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is the optional markdown attached to a catalog product.
type Discount struct {
	Percentage      decimal.Decimal `json:"percentage"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}

// Product is the storefront's reference to a catalog record. The catalog API
// owns it; the storefront only reads it.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand,omitempty"`
	Category       string          `json:"category,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Discount       *Discount       `json:"discount,omitempty"`
	Stock          int             `json:"stock"`
	Images         []string        `json:"images,omitempty"`
	Specifications json.RawMessage `json:"specifications,omitempty"`
}

// UnmarshalJSON accepts the catalog's "_id" key as an alias for "id".
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	var aux struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.alias)
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// HasDiscount reports whether a positive discount applies to the product.
func (p *Product) HasDiscount() bool {
	return p.Discount != nil && p.Discount.Percentage.IsPositive()
}

// EffectivePrice returns the discounted price when a positive discount is
// present, otherwise the base price. A discount without an explicit
// discounted price is derived from its percentage.
func (p *Product) EffectivePrice() decimal.Decimal {
	if !p.HasDiscount() {
		return p.Price
	}
	if p.Discount.DiscountedPrice.IsPositive() {
		return p.Discount.DiscountedPrice
	}
	factor := hundred.Sub(p.Discount.Percentage).Div(hundred)
	return p.Price.Mul(factor).Round(2)
}

// InStock reports whether the catalog lists any units for the product.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

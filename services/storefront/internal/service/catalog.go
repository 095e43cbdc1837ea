package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/pkg/slug"
	"github.com/utafrali/storefront/services/storefront/internal/client"
	"github.com/utafrali/storefront/services/storefront/internal/domain"
	"github.com/utafrali/storefront/services/storefront/internal/specfield"
	"github.com/utafrali/storefront/services/storefront/internal/state"
)

// Catalog is the product source behind CatalogService.
type Catalog interface {
	ListProducts(ctx context.Context, params client.ListParams) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ProductView is a product as the storefront renders it: prices resolved
// and the specification blob decoded.
type ProductView struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Brand          string           `json:"brand,omitempty"`
	Category       string           `json:"category,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	EffectivePrice decimal.Decimal  `json:"effective_price"`
	Discount       *domain.Discount `json:"discount,omitempty"`
	Stock          int              `json:"stock"`
	InStock        bool             `json:"in_stock"`
	Images         []string         `json:"images"`
	Specifications map[string]any   `json:"specifications"`
	InWishlist     bool             `json:"in_wishlist"`
}

// CatalogService turns catalog records into product views.
type CatalogService struct {
	catalog Catalog
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(catalog Catalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// List returns one page of product views. wishlist may be nil.
func (s *CatalogService) List(ctx context.Context, params client.ListParams, wishlist *state.Wishlist) ([]ProductView, error) {
	products, err := s.catalog.ListProducts(ctx, params)
	if err != nil {
		return nil, err
	}
	return lo.Map(products, func(p domain.Product, _ int) ProductView {
		return NewProductView(ctx, &p, wishlist)
	}), nil
}

// Get returns a single product view. wishlist may be nil.
func (s *CatalogService) Get(ctx context.Context, id string, wishlist *state.Wishlist) (*ProductView, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewProductView(ctx, p, wishlist)
	return &view, nil
}

// NewProductView builds the view of p. A specification blob that cannot be
// decoded renders as an empty object.
func NewProductView(ctx context.Context, p *domain.Product, wishlist *state.Wishlist) ProductView {
	specs := specfield.Parse(ctx, p.Specifications, map[string]any{})
	if specs == nil {
		specs = map[string]any{}
	}

	return ProductView{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           slug.Generate(p.Name),
		Brand:          p.Brand,
		Category:       p.Category,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		Discount:       p.Discount,
		Stock:          p.Stock,
		InStock:        p.InStock(),
		Images:         lo.Ternary(p.Images == nil, []string{}, p.Images),
		Specifications: specs,
		InWishlist:     wishlist != nil && wishlist.Contains(p.ID),
	}
}

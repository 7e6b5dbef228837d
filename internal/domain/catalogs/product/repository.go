package product

import (
	"context"

	"kardex/internal/core/id"
)

// Repository defines persistence operations for products.
type Repository interface {
	GetByID(ctx context.Context, productID id.ID) (Product, error)
	GetBySKU(ctx context.Context, sku string) (Product, error)
	List(ctx context.Context, filter Filter) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID id.ID) error

	// Exists reports whether a non-deleted product exists
	Exists(ctx context.Context, productID id.ID) (bool, error)
}

// Filter narrows product listings.
type Filter struct {
	Search string // matches code, name or SKU
	Limit  int
	Offset int
}

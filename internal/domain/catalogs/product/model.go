// Package product provides the product catalog.
package product

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/types"
)

// Product is a stocked item.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit, unique across the catalog
	SKU string `db:"sku" json:"sku"`

	// Unit is the unit of measure (pcs, kg, m)
	Unit string `db:"unit" json:"unit"`

	// ReorderPoint triggers low-stock reporting when available
	// quantity falls below it
	ReorderPoint types.Quantity `db:"reorder_point" json:"reorderPoint"`

	// CostPrice is the default unit cost for incoming postings that
	// carry no explicit cost
	CostPrice types.Money `db:"cost_price" json:"costPrice"`

	// MaxStockLevel is the replenishment ceiling reported next to the
	// reorder point
	MaxStockLevel types.Quantity `db:"max_stock_level" json:"maxStockLevel"`
}

// New creates a product with generated ID.
func New(code, name, sku, unit string) Product {
	return Product{
		Catalog:       entity.NewCatalog(code, name),
		SKU:           sku,
		Unit:          unit,
		ReorderPoint:  types.Zero(),
		CostPrice:     types.Zero(),
		MaxStockLevel: types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	if p.Unit == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}
	if p.ReorderPoint.IsNegative() {
		return apperror.NewValidation("reorder point cannot be negative").
			WithDetail("field", "reorderPoint")
	}
	return nil
}

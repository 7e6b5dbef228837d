// Package production provides BOM-driven production orders.
// Releasing an order reserves component stock; completing it consumes
// components and receives the finished product at computed cost.
package production

import (
	"context"
	"fmt"
	"sort"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// BOMLine is one component requirement, stated for the BOM's batch size.
type BOMLine struct {
	ComponentID id.ID          `db:"component_id" json:"componentId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
}

// BOM is a bill of materials for one output product.
type BOM struct {
	entity.Catalog

	// ProductID is the finished product this BOM produces
	ProductID id.ID `db:"product_id" json:"productId"`

	// BatchSize is the output quantity the line quantities are stated
	// for. Consumption scales linearly with the actual quantity.
	BatchSize types.Quantity `db:"batch_size" json:"batchSize"`

	Lines []BOMLine `json:"lines"`
}

// NewBOM creates a bill of materials with generated ID.
func NewBOM(code, name string, productID id.ID, batchSize types.Quantity) BOM {
	return BOM{
		Catalog:   entity.NewCatalog(code, name),
		ProductID: productID,
		BatchSize: batchSize,
	}
}

// Validate implements entity.Validatable.
func (b *BOM) Validate(ctx context.Context) error {
	if err := b.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !b.BatchSize.IsPositive() {
		return apperror.NewValidation("batch size must be positive").
			WithDetail("field", "batchSize")
	}
	if len(b.Lines) == 0 {
		return apperror.NewValidation("bill of materials has no lines")
	}
	seen := make(map[id.ID]struct{}, len(b.Lines))
	for i, line := range b.Lines {
		if id.IsNil(line.ComponentID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: component is required", i))
		}
		if line.ComponentID == b.ProductID {
			return apperror.NewValidation(fmt.Sprintf("line %d: product cannot be its own component", i))
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if _, dup := seen[line.ComponentID]; dup {
			return apperror.NewValidation(fmt.Sprintf("line %d: duplicate component", i)).
				WithDetail("component_id", line.ComponentID)
		}
		seen[line.ComponentID] = struct{}{}
	}
	return nil
}

// Requirements returns the scaled component needs for an output
// quantity, ordered by component id. Every caller walks components in
// the same sequence, so concurrent orders over shared components lock
// their stock rows in one fixed order.
func (b *BOM) Requirements(outputQty types.Quantity) []BOMLine {
	factor := outputQty.Div(b.BatchSize)
	reqs := make([]BOMLine, len(b.Lines))
	for i, line := range b.Lines {
		reqs[i] = BOMLine{
			ComponentID: line.ComponentID,
			Quantity:    types.RoundQuantity(line.Quantity.Mul(factor)),
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].ComponentID.String() < reqs[j].ComponentID.String()
	})
	return reqs
}

// Shortage reports one component the warehouse cannot cover.
type Shortage struct {
	ComponentID id.ID          `json:"componentId"`
	Required    types.Quantity `json:"required"`
	Available   types.Quantity `json:"available"`
	Deficit     types.Quantity `json:"deficit"`
}

// OrderStatus is the production order lifecycle state.
type OrderStatus string

const (
	OrderDraft     OrderStatus = "draft"
	OrderReleased  OrderStatus = "released"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a production run for one BOM at one warehouse.
type Order struct {
	entity.BaseDocument

	// Number is the human-readable order number
	Number string `db:"number" json:"number"`

	BOMID       id.ID `db:"bom_id" json:"bomId"`
	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	// PlannedQty is the output quantity the order was released for
	PlannedQty types.Quantity `db:"planned_qty" json:"plannedQty"`

	// ActualQty is the produced quantity, set at completion
	ActualQty types.Quantity `db:"actual_qty" json:"actualQty"`

	Status OrderStatus `db:"status" json:"status"`
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if id.IsNil(o.BOMID) {
		return apperror.NewValidation("bill of materials is required").
			WithDetail("field", "bomId")
	}
	if id.IsNil(o.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if !o.PlannedQty.IsPositive() {
		return apperror.NewValidation("planned quantity must be positive").
			WithDetail("field", "plannedQty")
	}
	return nil
}

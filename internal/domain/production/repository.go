package production

import (
	"context"

	"kardex/internal/core/id"
)

// BOMRepository persists bills of materials with their lines.
type BOMRepository interface {
	GetByID(ctx context.Context, bomID id.ID) (BOM, error)
	GetByCode(ctx context.Context, code string) (BOM, error)
	ListByProduct(ctx context.Context, productID id.ID) ([]BOM, error)
	List(ctx context.Context) ([]BOM, error)
	Create(ctx context.Context, b *BOM) error
	Update(ctx context.Context, b *BOM) error
	Delete(ctx context.Context, bomID id.ID) error
}

// OrderRepository persists production orders.
type OrderRepository interface {
	GetByID(ctx context.Context, orderID id.ID) (Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	Create(ctx context.Context, o *Order) error

	// Update saves changes with optimistic locking on Version
	Update(ctx context.Context, o *Order) error
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status      *OrderStatus
	ProductID   *id.ID
	WarehouseID *id.ID
	Limit       int
	Offset      int
}

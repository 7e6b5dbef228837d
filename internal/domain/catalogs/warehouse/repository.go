package warehouse

import (
	"context"

	"kardex/internal/core/id"
)

// Repository defines persistence operations for warehouses.
type Repository interface {
	GetByID(ctx context.Context, warehouseID id.ID) (Warehouse, error)
	GetByCode(ctx context.Context, code string) (Warehouse, error)
	List(ctx context.Context) ([]Warehouse, error)
	Create(ctx context.Context, w *Warehouse) error
	Update(ctx context.Context, w *Warehouse) error
	Delete(ctx context.Context, warehouseID id.ID) error
}

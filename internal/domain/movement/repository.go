package movement

import (
	"context"

	"kardex/internal/core/id"
)

// Repository defines persistence operations for movement types.
type Repository interface {
	// GetByID retrieves a type by primary key
	GetByID(ctx context.Context, typeID id.ID) (Type, error)

	// GetByCode retrieves a type by its unique code
	GetByCode(ctx context.Context, code string) (Type, error)

	// List returns all types, system first, then by code
	List(ctx context.Context) ([]Type, error)

	// Create inserts a new type
	Create(ctx context.Context, t *Type) error

	// Update saves changes with optimistic locking on Version
	Update(ctx context.Context, t *Type) error

	// Delete soft-deletes a type
	Delete(ctx context.Context, typeID id.ID) error
}

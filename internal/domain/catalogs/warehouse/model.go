// Package warehouse provides the warehouse catalog.
package warehouse

import (
	"context"

	"kardex/internal/core/entity"
)

// Warehouse is a physical storage location.
type Warehouse struct {
	entity.Catalog

	// Address is free-form location info
	Address string `db:"address" json:"address,omitempty"`

	// AllowNegative permits outgoing movements to drive on-hand below
	// zero. Used for virtual locations (in-transit, write-off).
	AllowNegative bool `db:"allow_negative" json:"allowNegative"`

	// CanReceive and CanShip gate posting directions. A returns buffer
	// receives but never ships; a transit location may do neither.
	CanReceive bool `db:"can_receive" json:"canReceive"`
	CanShip    bool `db:"can_ship" json:"canShip"`
}

// New creates a warehouse with generated ID. Both posting directions
// are open until configured otherwise.
func New(code, name string) Warehouse {
	w := Warehouse{
		Catalog: entity.NewCatalog(code, name),
	}
	w.CanReceive = true
	w.CanShip = true
	return w
}

// Validate implements entity.Validatable.
func (w *Warehouse) Validate(ctx context.Context) error {
	return w.Catalog.Validate(ctx)
}

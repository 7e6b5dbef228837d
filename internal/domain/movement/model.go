// Package movement defines the movement type catalog.
// Movement types classify journal entries: which way stock moves,
// whether a source document reference is mandatory, and whether the
// type participates in weighted-average cost.
package movement

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
)

// Direction tells which way a movement changes on-hand stock.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid reports whether the direction is one of the known values.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// System movement type codes. Seeded at startup and protected from
// modification through the registry service.
const (
	TypePurchaseReceipt = "PURCHASE_RECEIPT"
	TypeSalesShipment   = "SALES_SHIPMENT"
	TypeTransferIn      = "TRANSFER_IN"
	TypeTransferOut     = "TRANSFER_OUT"
	TypeAdjustmentIn    = "ADJUSTMENT_IN"
	TypeAdjustmentOut   = "ADJUSTMENT_OUT"
	TypeReturnIn        = "RETURN_IN"
	TypeReturnOut       = "RETURN_OUT"
	TypeScrap           = "SCRAP"
	TypeProductionIn    = "PRODUCTION_IN"
	TypeProductionOut   = "PRODUCTION_OUT"
)

// Type is a catalog entry describing a class of stock movements.
type Type struct {
	entity.Catalog

	// Direction is the stock effect of movements posted under this type
	Direction Direction `db:"direction" json:"direction"`

	// RequiresReference forces ReferenceType+ReferenceID on posting
	RequiresReference bool `db:"requires_reference" json:"requiresReference"`

	// AffectsCost includes incoming movements in weighted-average cost.
	// Only meaningful for DirectionIn types.
	AffectsCost bool `db:"affects_cost" json:"affectsCost"`

	// IsSystem marks built-in types that cannot be edited or removed
	IsSystem bool `db:"is_system" json:"isSystem"`
}

// NewType creates a user-defined movement type.
func NewType(code, name string, direction Direction) Type {
	return Type{
		Catalog:     entity.NewCatalog(code, name),
		Direction:   direction,
		AffectsCost: direction == DirectionIn,
	}
}

// Validate implements entity.Validatable.
func (t *Type) Validate(ctx context.Context) error {
	if err := t.Catalog.Validate(ctx); err != nil {
		return err
	}
	if t.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if !t.Direction.Valid() {
		return apperror.NewValidation("direction must be IN or OUT").
			WithDetail("field", "direction").
			WithDetail("value", string(t.Direction))
	}
	if t.AffectsCost && t.Direction != DirectionIn {
		return apperror.NewValidation("only incoming types can affect cost").
			WithDetail("field", "affectsCost")
	}
	return nil
}

// SystemTypes returns the built-in movement types in seed order.
func SystemTypes() []Type {
	mk := func(code, name string, dir Direction, requiresRef, affectsCost bool) Type {
		t := NewType(code, name, dir)
		t.RequiresReference = requiresRef
		t.AffectsCost = affectsCost
		t.IsSystem = true
		return t
	}

	return []Type{
		mk(TypePurchaseReceipt, "Purchase receipt", DirectionIn, true, true),
		mk(TypeSalesShipment, "Sales shipment", DirectionOut, true, false),
		mk(TypeTransferIn, "Transfer in", DirectionIn, true, true),
		mk(TypeTransferOut, "Transfer out", DirectionOut, true, false),
		mk(TypeAdjustmentIn, "Adjustment in", DirectionIn, false, false),
		mk(TypeAdjustmentOut, "Adjustment out", DirectionOut, false, false),
		mk(TypeReturnIn, "Customer return", DirectionIn, true, true),
		mk(TypeReturnOut, "Return to supplier", DirectionOut, true, false),
		mk(TypeScrap, "Scrap write-off", DirectionOut, false, false),
		mk(TypeProductionIn, "Production output", DirectionIn, true, true),
		mk(TypeProductionOut, "Production consumption", DirectionOut, true, false),
	}
}

// Package ledger implements the inventory ledger: an append-only movement
// journal plus a materialized per-location stock aggregate. The aggregate
// (on-hand, reserved, ordered, weighted-average cost) is always derivable
// by replaying the journal in sequence order.
package ledger

import (
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/movement"
)

// Entry is one immutable line of the movement journal.
// Entries are never updated or deleted; corrections are posted as
// compensating entries linked through ReversalOf.
type Entry struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Seq is the journal position, assigned by the database on insert.
	// Replay applies entries in ascending Seq.
	Seq int64 `db:"seq" json:"seq"`

	// TypeCode references the movement type catalog
	TypeCode string `db:"type_code" json:"typeCode"`

	// Direction is copied from the type at posting time. Reversals carry
	// the opposite direction under the original type code.
	Direction movement.Direction `db:"direction" json:"direction"`

	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	// Quantity is always positive; Direction carries the sign
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitCost is the cost per unit at posting time. For outgoing entries
	// this is the location's weighted-average cost when the entry posted.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// AffectsCost records whether this entry entered the weighted-average
	// calculation. Stored on the entry so replay does not depend on the
	// type catalog's current state.
	AffectsCost bool `db:"affects_cost" json:"affectsCost"`

	// ReferenceType and ReferenceID point at the source document
	// (order, production run, count sheet). Required when the movement
	// type demands a reference.
	ReferenceType string `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   string `db:"reference_id" json:"referenceId,omitempty"`

	// ReversalOf links a compensating entry to the entry it cancels
	ReversalOf *id.ID `db:"reversal_of" json:"reversalOf,omitempty"`

	PostedAt time.Time `db:"posted_at" json:"postedAt"`
	PostedBy string    `db:"posted_by" json:"postedBy,omitempty"`
}

// SignedQuantity returns the quantity with the direction applied.
func (e Entry) SignedQuantity() types.Quantity {
	if e.Direction == movement.DirectionOut {
		return e.Quantity.Neg()
	}
	return e.Quantity
}

// TotalCost returns quantity times unit cost, rounded to money scale.
func (e Entry) TotalCost() types.Money {
	return types.RoundMoney(e.Quantity.Mul(e.UnitCost))
}

// StockLocation is the materialized aggregate for one product at one
// warehouse. One row per (warehouse, product) pair; the row is locked
// FOR UPDATE during posting so concurrent movements serialize.
type StockLocation struct {
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`

	// OnHand is the physical quantity in the warehouse
	OnHand types.Quantity `db:"on_hand" json:"onHand"`

	// Reserved is the portion of OnHand held for open orders
	Reserved types.Quantity `db:"reserved" json:"reserved"`

	// Ordered is the quantity expected to arrive (released production)
	Ordered types.Quantity `db:"ordered" json:"ordered"`

	// AvgCost is the weighted-average unit cost of OnHand
	AvgCost types.Money `db:"avg_cost" json:"avgCost"`

	// LastCountAt is when a physical count last touched this location
	LastCountAt *time.Time `db:"last_count_at" json:"lastCountAt,omitempty"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Available returns the quantity free for new reservations.
func (s StockLocation) Available() types.Quantity {
	return s.OnHand.Sub(s.Reserved)
}

// ReservationStatus tracks the lifecycle of a reservation record.
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
	ReservationConsumed ReservationStatus = "consumed"
)

// Reservation is an auditable hold on available stock.
// The quantity it holds is mirrored in StockLocation.Reserved.
type Reservation struct {
	ID          id.ID `db:"id" json:"id"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`

	// Quantity still held. Partial releases reduce it in place.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   string `db:"reference_id" json:"referenceId"`

	Status    ReservationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time         `db:"updated_at" json:"updatedAt"`
	CreatedBy string            `db:"created_by" json:"createdBy,omitempty"`
}

package ledger

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/movement"
)

// PostIncoming posts an inbound movement. An empty type code defaults to
// PURCHASE_RECEIPT; any resolved type must be inbound.
func (s *Service) PostIncoming(ctx context.Context, cmd PostCommand) (Entry, error) {
	if cmd.TypeCode == "" {
		cmd.TypeCode = movement.TypePurchaseReceipt
	}
	mt, err := s.registry.Resolve(ctx, cmd.TypeCode)
	if err != nil {
		return Entry{}, err
	}
	if mt.Direction != movement.DirectionIn {
		return Entry{}, apperror.NewInvalidMovementDirection(mt.Code,
			"incoming posting requires an inbound movement type")
	}
	return s.Post(ctx, cmd)
}

// PostOutgoing posts an outbound movement. An empty type code defaults to
// SALES_SHIPMENT; any resolved type must be outbound.
func (s *Service) PostOutgoing(ctx context.Context, cmd PostCommand) (Entry, error) {
	if cmd.TypeCode == "" {
		cmd.TypeCode = movement.TypeSalesShipment
	}
	mt, err := s.registry.Resolve(ctx, cmd.TypeCode)
	if err != nil {
		return Entry{}, err
	}
	if mt.Direction != movement.DirectionOut {
		return Entry{}, apperror.NewInvalidMovementDirection(mt.Code,
			"outgoing posting requires an outbound movement type")
	}
	return s.Post(ctx, cmd)
}

// PostAdjustment posts a signed stock correction. Positive delta posts
// ADJUSTMENT_IN, negative ADJUSTMENT_OUT of the absolute value.
func (s *Service) PostAdjustment(ctx context.Context, warehouseID, productID id.ID, delta types.Quantity, refType, refID string) (Entry, error) {
	if delta.IsZero() {
		return Entry{}, apperror.NewNonPositiveQuantity(delta)
	}
	cmd := PostCommand{
		TypeCode:      movement.TypeAdjustmentIn,
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      delta,
		ReferenceType: refType,
		ReferenceID:   refID,
	}
	if delta.IsNegative() {
		cmd.TypeCode = movement.TypeAdjustmentOut
		cmd.Quantity = delta.Neg()
	}
	return s.Post(ctx, cmd)
}

// Ship consumes an active reservation together with an outbound posting.
// Release of the hold and the physical decrement share one transaction.
// Zero-valued command fields are filled from the reservation.
func (s *Service) Ship(ctx context.Context, reservationID id.ID, cmd PostCommand) (Entry, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return Entry{}, err
	}
	if id.IsNil(cmd.WarehouseID) {
		cmd.WarehouseID = res.WarehouseID
	}
	if id.IsNil(cmd.ProductID) {
		cmd.ProductID = res.ProductID
	}
	if cmd.Quantity.IsZero() {
		cmd.Quantity = res.Quantity
	}
	if cmd.ReferenceType == "" {
		cmd.ReferenceType = res.ReferenceType
		cmd.ReferenceID = res.ReferenceID
	}
	cmd.ReservationID = &reservationID
	return s.PostOutgoing(ctx, cmd)
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/appcontext"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// ReserveCommand places a hold on available stock.
type ReserveCommand struct {
	WarehouseID   id.ID
	ProductID     id.ID
	Quantity      types.Quantity
	ReferenceType string
	ReferenceID   string
}

// Reserve holds available stock for an order. The hold reduces what other
// reservations and un-referenced shipments can take, but does not move
// anything; no journal entry is written.
func (s *Service) Reserve(ctx context.Context, cmd ReserveCommand) (Reservation, error) {
	if !cmd.Quantity.IsPositive() {
		return Reservation{}, apperror.NewNonPositiveQuantity(cmd.Quantity)
	}
	if cmd.ReferenceType == "" || cmd.ReferenceID == "" {
		return Reservation{}, apperror.NewValidation("reservation requires a reference").
			WithDetail("field", "reference")
	}

	ok, err := s.products.Exists(ctx, cmd.ProductID)
	if err != nil {
		return Reservation{}, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return Reservation{}, apperror.NewNotFound("product", cmd.ProductID)
	}

	var res Reservation
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.warehouses.Policy(ctx, cmd.WarehouseID); err != nil {
			return err
		}

		loc, err := s.stocks.GetForUpdate(ctx, cmd.WarehouseID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("lock stock location: %w", err)
		}

		if cmd.Quantity.GreaterThan(loc.Available()) {
			return apperror.NewInsufficientAvailableStock(
				cmd.ProductID.String(), cmd.WarehouseID.String(),
				cmd.Quantity, loc.Available())
		}

		now := time.Now().UTC()
		res = Reservation{
			ID:            id.New(),
			WarehouseID:   cmd.WarehouseID,
			ProductID:     cmd.ProductID,
			Quantity:      types.RoundQuantity(cmd.Quantity),
			ReferenceType: cmd.ReferenceType,
			ReferenceID:   cmd.ReferenceID,
			Status:        ReservationActive,
			CreatedAt:     now,
			UpdatedAt:     now,
			CreatedBy:     appcontext.ActorID(ctx),
		}
		if err := s.reservations.Create(ctx, &res); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		loc.Reserved = types.RoundQuantity(loc.Reserved.Add(cmd.Quantity))
		loc.UpdatedAt = now
		if err := s.stocks.Save(ctx, &loc); err != nil {
			return fmt.Errorf("save stock location: %w", err)
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	logger.Info(ctx, "stock reserved",
		"reservation_id", res.ID,
		"product_id", cmd.ProductID,
		"warehouse_id", cmd.WarehouseID,
		"quantity", cmd.Quantity.String(),
	)
	return res, nil
}

// Release frees part or all of a reservation back to available stock.
func (s *Service) Release(ctx context.Context, reservationID id.ID, quantity types.Quantity) (Reservation, error) {
	if !quantity.IsPositive() {
		return Reservation{}, apperror.NewNonPositiveQuantity(quantity)
	}

	var res Reservation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != ReservationActive {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "reservation is not active").
				WithDetail("reservation_id", res.ID).
				WithDetail("status", string(res.Status))
		}
		if quantity.GreaterThan(res.Quantity) {
			return apperror.NewOverRelease(
				res.ProductID.String(), res.WarehouseID.String(),
				quantity, res.Quantity)
		}

		loc, err := s.stocks.GetForUpdate(ctx, res.WarehouseID, res.ProductID)
		if err != nil {
			return fmt.Errorf("lock stock location: %w", err)
		}

		now := time.Now().UTC()
		res.Quantity = types.RoundQuantity(res.Quantity.Sub(quantity))
		res.UpdatedAt = now
		if res.Quantity.IsZero() {
			res.Status = ReservationReleased
		}
		if err := s.reservations.Update(ctx, &res); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}

		loc.Reserved = types.RoundQuantity(loc.Reserved.Sub(quantity))
		if loc.Reserved.IsNegative() {
			loc.Reserved = types.Zero()
		}
		loc.UpdatedAt = now
		if err := s.stocks.Save(ctx, &loc); err != nil {
			return fmt.Errorf("save stock location: %w", err)
		}
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	logger.Info(ctx, "reservation released",
		"reservation_id", res.ID,
		"quantity", quantity.String(),
		"remaining", res.Quantity.String(),
	)
	return res, nil
}

// GetReservation returns one reservation record.
func (s *Service) GetReservation(ctx context.Context, reservationID id.ID) (Reservation, error) {
	return s.reservations.GetByID(ctx, reservationID)
}

// ListActiveReservations returns active holds for a location.
func (s *Service) ListActiveReservations(ctx context.Context, warehouseID, productID id.ID) ([]Reservation, error) {
	return s.reservations.ListActive(ctx, warehouseID, productID)
}

// ListReservationsByReference returns all holds tied to a source document.
func (s *Service) ListReservationsByReference(ctx context.Context, refType, refID string) ([]Reservation, error) {
	return s.reservations.ListByReference(ctx, refType, refID)
}

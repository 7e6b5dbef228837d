package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/movement"
	"kardex/pkg/logger"
)

// CountLine is one counted product on a count sheet.
type CountLine struct {
	ProductID  id.ID
	CountedQty types.Quantity
}

// CountCommand records a physical count for one warehouse.
type CountCommand struct {
	WarehouseID id.ID
	ReferenceID string
	Lines       []CountLine
}

// CountResult reports what the count changed.
type CountResult struct {
	Entries   []Entry        `json:"entries"`
	Unchanged int            `json:"unchanged"`
	Shortage  types.Quantity `json:"shortage"`
	Surplus   types.Quantity `json:"surplus"`

	// TrimmedHolds is the reserved quantity released because the count
	// found less stock than was promised to active reservations.
	TrimmedHolds types.Quantity `json:"trimmedHolds"`
}

// PostCount compares counted quantities against the book quantity and
// posts signed adjustments for the differences. Lines that match the
// book exactly produce no entry. A shortage that leaves active holds
// promising more than was counted trims those holds down. The whole
// sheet posts in one transaction, so a partially applied count never
// becomes visible.
func (s *Service) PostCount(ctx context.Context, cmd CountCommand) (CountResult, error) {
	if len(cmd.Lines) == 0 {
		return CountResult{}, apperror.NewValidation("count sheet has no lines")
	}
	if cmd.ReferenceID == "" {
		return CountResult{}, apperror.NewValidation("count sheet requires a reference id").
			WithDetail("field", "referenceId")
	}
	seen := make(map[id.ID]struct{}, len(cmd.Lines))
	for i, line := range cmd.Lines {
		if line.CountedQty.IsNegative() {
			return CountResult{}, apperror.NewValidation(
				fmt.Sprintf("line %d: counted quantity cannot be negative", i)).
				WithDetail("product_id", line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return CountResult{}, apperror.NewValidation(
				fmt.Sprintf("line %d: product counted twice", i)).
				WithDetail("product_id", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}

		ok, err := s.products.Exists(ctx, line.ProductID)
		if err != nil {
			return CountResult{}, fmt.Errorf("check product: %w", err)
		}
		if !ok {
			return CountResult{}, apperror.NewNotFound("product", line.ProductID)
		}
	}

	inType, err := s.registry.Resolve(ctx, movement.TypeAdjustmentIn)
	if err != nil {
		return CountResult{}, err
	}
	outType, err := s.registry.Resolve(ctx, movement.TypeAdjustmentOut)
	if err != nil {
		return CountResult{}, err
	}

	result := CountResult{Shortage: types.Zero(), Surplus: types.Zero(), TrimmedHolds: types.Zero()}
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.warehouses.Policy(ctx, cmd.WarehouseID)
		if err != nil {
			return err
		}
		// Counts overwrite the book quantity; posting policy never
		// blocks recording what was actually counted.
		policy.AllowNegative = true
		policy.CanReceive = true
		policy.CanShip = true

		for _, line := range cmd.Lines {
			loc, err := s.stocks.GetForUpdate(ctx, cmd.WarehouseID, line.ProductID)
			if err != nil {
				return fmt.Errorf("lock stock location: %w", err)
			}

			now := time.Now().UTC()
			diff := line.CountedQty.Sub(loc.OnHand)
			if diff.IsZero() {
				loc.LastCountAt = &now
				loc.UpdatedAt = now
				if err := s.stocks.Save(ctx, &loc); err != nil {
					return fmt.Errorf("save stock location: %w", err)
				}
				result.Unchanged++
				continue
			}

			mt := inType
			if diff.IsNegative() {
				mt = outType
			}
			entry, err := s.postLocked(ctx, &loc, mt, PostCommand{
				TypeCode:      mt.Code,
				ProductID:     line.ProductID,
				WarehouseID:   cmd.WarehouseID,
				Quantity:      diff.Abs(),
				ReferenceType: "physical_count",
				ReferenceID:   cmd.ReferenceID,
			}, policy)
			if err != nil {
				return err
			}

			if loc.Reserved.GreaterThan(loc.OnHand) {
				trimmed, err := s.trimHolds(ctx, &loc)
				if err != nil {
					return err
				}
				result.TrimmedHolds = result.TrimmedHolds.Add(trimmed)
			}

			loc.LastCountAt = &now
			if err := s.stocks.Save(ctx, &loc); err != nil {
				return fmt.Errorf("save stock location: %w", err)
			}

			result.Entries = append(result.Entries, entry)
			if diff.IsNegative() {
				result.Shortage = result.Shortage.Add(diff.Abs())
			} else {
				result.Surplus = result.Surplus.Add(diff)
			}
		}
		return nil
	})
	if err != nil {
		return CountResult{}, err
	}

	logger.Info(ctx, "physical count posted",
		"warehouse_id", cmd.WarehouseID,
		"reference", cmd.ReferenceID,
		"adjustments", len(result.Entries),
		"unchanged", result.Unchanged,
	)
	return result, nil
}

// trimHolds shrinks active reservations until the reserved quantity
// fits inside the counted on-hand quantity. Newest holds give way
// first, so the oldest promise survives the longest. A count that
// finds less stock than was reserved cannot keep every hold alive.
func (s *Service) trimHolds(ctx context.Context, loc *StockLocation) (types.Quantity, error) {
	active, err := s.reservations.ListActive(ctx, loc.WarehouseID, loc.ProductID)
	if err != nil {
		return types.Zero(), fmt.Errorf("load reservations: %w", err)
	}

	excess := loc.Reserved.Sub(loc.OnHand)
	trimmed := types.Zero()
	now := time.Now().UTC()
	for i := len(active) - 1; i >= 0 && excess.IsPositive(); i-- {
		res := active[i]
		cut := res.Quantity
		if cut.GreaterThan(excess) {
			cut = excess
		}
		res.Quantity = types.RoundQuantity(res.Quantity.Sub(cut))
		res.UpdatedAt = now
		if res.Quantity.IsZero() {
			res.Status = ReservationReleased
		}
		if err := s.reservations.Update(ctx, &res); err != nil {
			return types.Zero(), fmt.Errorf("trim reservation: %w", err)
		}
		excess = excess.Sub(cut)
		trimmed = trimmed.Add(cut)

		logger.Warn(ctx, "count trimmed reservation",
			"reservation_id", res.ID,
			"cut", cut.String(),
			"remaining", res.Quantity.String(),
		)
	}
	loc.Reserved = types.RoundQuantity(loc.Reserved.Sub(trimmed))
	return trimmed, nil
}

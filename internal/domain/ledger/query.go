package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// GetStock returns the aggregate for one location without locking.
func (s *Service) GetStock(ctx context.Context, warehouseID, productID id.ID) (StockLocation, error) {
	return s.stocks.Get(ctx, warehouseID, productID)
}

// ListWarehouseStock returns aggregates for a warehouse.
func (s *Service) ListWarehouseStock(ctx context.Context, warehouseID id.ID, filter StockFilter) ([]StockLocation, error) {
	return s.stocks.ListByWarehouse(ctx, warehouseID, filter)
}

// ListProductStock returns a product's aggregates across warehouses.
func (s *Service) ListProductStock(ctx context.Context, productID id.ID) ([]StockLocation, error) {
	return s.stocks.ListByProduct(ctx, productID)
}

// TotalOnHand sums a product's on-hand quantity across warehouses.
func (s *Service) TotalOnHand(ctx context.Context, productID id.ID) (types.Quantity, error) {
	locs, err := s.stocks.ListByProduct(ctx, productID)
	if err != nil {
		return types.Zero(), err
	}
	total := types.Zero()
	for _, l := range locs {
		total = total.Add(l.OnHand)
	}
	return total, nil
}

// GetEntry returns one journal entry.
func (s *Service) GetEntry(ctx context.Context, entryID id.ID) (Entry, error) {
	return s.entries.GetByID(ctx, entryID)
}

// ListEntries returns journal entries matching the filter.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return s.entries.List(ctx, filter)
}

// BalanceAtDate replays the journal up to a point in time, giving the
// on-hand quantity and average cost the location held then. Reserved
// and expected quantities are not reconstructed; they are not journal
// facts.
func (s *Service) BalanceAtDate(ctx context.Context, warehouseID, productID id.ID, at time.Time) (StockLocation, error) {
	entries, err := s.entries.List(ctx, EntryFilter{
		WarehouseID: &warehouseID,
		ProductID:   &productID,
		ToDate:      &at,
	})
	if err != nil {
		return StockLocation{}, fmt.Errorf("load journal: %w", err)
	}
	return Replay(warehouseID, productID, entries), nil
}

// GetTurnover builds a receipt/expense report for a period.
func (s *Service) GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error) {
	return s.entries.GetTurnover(ctx, filter)
}

// ListLowStock returns locations where available stock is under the
// product's reorder point.
func (s *Service) ListLowStock(ctx context.Context, warehouseID *id.ID) ([]LowStock, error) {
	return s.stocks.ListBelow(ctx, warehouseID)
}

// Replay folds journal entries into a fresh aggregate.
// Entries must be in ascending Seq order.
func Replay(warehouseID, productID id.ID, entries []Entry) StockLocation {
	loc := StockLocation{
		WarehouseID: warehouseID,
		ProductID:   productID,
		OnHand:      types.Zero(),
		Reserved:    types.Zero(),
		Ordered:     types.Zero(),
		AvgCost:     types.Zero(),
	}
	for _, e := range entries {
		Apply(&loc, e)
	}
	return loc
}

// Rebuild recomputes one location's aggregate from the journal and active
// reservations, replacing whatever the materialized row held. Used as a
// repair tool when the aggregate is suspected to have drifted.
func (s *Service) Rebuild(ctx context.Context, warehouseID, productID id.ID) (StockLocation, error) {
	var rebuilt StockLocation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.stocks.GetForUpdate(ctx, warehouseID, productID)
		if err != nil {
			return fmt.Errorf("lock stock location: %w", err)
		}

		entries, err := s.entries.ListByLocation(ctx, warehouseID, productID)
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		rebuilt = Replay(warehouseID, productID, entries)

		active, err := s.reservations.ListActive(ctx, warehouseID, productID)
		if err != nil {
			return fmt.Errorf("load reservations: %w", err)
		}
		for _, r := range active {
			rebuilt.Reserved = rebuilt.Reserved.Add(r.Quantity)
		}

		// Ordered tracks open production expectations, not journal facts.
		rebuilt.Ordered = current.Ordered
		rebuilt.LastCountAt = current.LastCountAt
		rebuilt.UpdatedAt = time.Now().UTC()

		if err := s.stocks.Save(ctx, &rebuilt); err != nil {
			return fmt.Errorf("save stock location: %w", err)
		}

		if !current.OnHand.Equal(rebuilt.OnHand) || !current.AvgCost.Equal(rebuilt.AvgCost) {
			logger.Warn(ctx, "stock aggregate drift repaired",
				"warehouse_id", warehouseID,
				"product_id", productID,
				"on_hand_before", current.OnHand.String(),
				"on_hand_after", rebuilt.OnHand.String(),
				"avg_cost_before", current.AvgCost.String(),
				"avg_cost_after", rebuilt.AvgCost.String(),
			)
		}
		return nil
	})
	if err != nil {
		return StockLocation{}, err
	}
	return rebuilt, nil
}

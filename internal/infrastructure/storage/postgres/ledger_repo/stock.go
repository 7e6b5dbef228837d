package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/postgres"
)

const stockTable = "stock_locations"

var stockColumns = []string{
	"warehouse_id", "product_id",
	"on_hand", "reserved", "ordered", "avg_cost",
	"last_count_at", "updated_at",
}

// StockRepo implements ledger.StockRepository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a stock aggregate repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func emptyLocation(warehouseID, productID id.ID) ledger.StockLocation {
	return ledger.StockLocation{
		WarehouseID: warehouseID,
		ProductID:   productID,
		OnHand:      types.Zero(),
		Reserved:    types.Zero(),
		Ordered:     types.Zero(),
		AvgCost:     types.Zero(),
	}
}

// Get returns the aggregate without locking.
func (r *StockRepo) Get(ctx context.Context, warehouseID, productID id.ID) (ledger.StockLocation, error) {
	q := r.builder.Select(stockColumns...).
		From(stockTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID, "product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.StockLocation{}, fmt.Errorf("build query: %w", err)
	}

	var loc ledger.StockLocation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &loc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return emptyLocation(warehouseID, productID), nil
		}
		return ledger.StockLocation{}, fmt.Errorf("get stock location: %w", err)
	}
	return loc, nil
}

// GetForUpdate locks the row for the rest of the transaction. A zero row
// is inserted first so the lock has something to attach to on a
// location's very first movement.
func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, productID id.ID) (ledger.StockLocation, error) {
	querier := r.txm.GetQuerier(ctx)

	_, err := querier.Exec(ctx, `
		INSERT INTO stock_locations (warehouse_id, product_id, on_hand, reserved, ordered, avg_cost, updated_at)
		VALUES ($1, $2, 0, 0, 0, 0, $3)
		ON CONFLICT (warehouse_id, product_id) DO NOTHING`,
		warehouseID, productID, time.Now().UTC())
	if err != nil {
		return ledger.StockLocation{}, fmt.Errorf("ensure stock location: %w", err)
	}

	sql := `
		SELECT warehouse_id, product_id, on_hand, reserved, ordered, avg_cost, last_count_at, updated_at
		FROM stock_locations
		WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`

	var loc ledger.StockLocation
	if err := pgxscan.Get(ctx, querier, &loc, sql, warehouseID, productID); err != nil {
		return ledger.StockLocation{}, fmt.Errorf("lock stock location: %w", err)
	}
	return loc, nil
}

// Save upserts the aggregate row.
func (r *StockRepo) Save(ctx context.Context, s *ledger.StockLocation) error {
	sql := `
		INSERT INTO stock_locations (warehouse_id, product_id, on_hand, reserved, ordered, avg_cost, last_count_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (warehouse_id, product_id) DO UPDATE SET
			on_hand = EXCLUDED.on_hand,
			reserved = EXCLUDED.reserved,
			ordered = EXCLUDED.ordered,
			avg_cost = EXCLUDED.avg_cost,
			last_count_at = EXCLUDED.last_count_at,
			updated_at = EXCLUDED.updated_at`

	querier := r.txm.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		s.WarehouseID, s.ProductID,
		s.OnHand, s.Reserved, s.Ordered, s.AvgCost,
		s.LastCountAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save stock location: %w", err)
	}
	return nil
}

// ListByWarehouse returns aggregates for a warehouse.
func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID id.ID, filter ledger.StockFilter) ([]ledger.StockLocation, error) {
	q := r.builder.Select(stockColumns...).
		From(stockTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID})

	if filter.ExcludeZero {
		q = q.Where("on_hand <> 0")
	}
	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}

	q = q.OrderBy("product_id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locs []ledger.StockLocation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locs, sql, args...); err != nil {
		return nil, fmt.Errorf("select stock locations: %w", err)
	}
	return locs, nil
}

// ListByProduct returns a product's aggregates across warehouses.
func (r *StockRepo) ListByProduct(ctx context.Context, productID id.ID) ([]ledger.StockLocation, error) {
	q := r.builder.Select(stockColumns...).
		From(stockTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where("on_hand <> 0").
		OrderBy("warehouse_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locs []ledger.StockLocation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locs, sql, args...); err != nil {
		return nil, fmt.Errorf("select stock locations: %w", err)
	}
	return locs, nil
}

// ListBelow joins products to find locations under their reorder point.
func (r *StockRepo) ListBelow(ctx context.Context, warehouseID *id.ID) ([]ledger.LowStock, error) {
	sql := `
		SELECT s.warehouse_id, s.product_id,
		       s.on_hand, s.reserved, s.ordered, s.avg_cost,
		       s.last_count_at, s.updated_at,
		       p.reorder_point, p.max_stock_level
		FROM stock_locations s
		JOIN cat_products p ON p.id = s.product_id
		WHERE p.deletion_mark = false
		  AND p.reorder_point > 0
		  AND (s.on_hand - s.reserved) < p.reorder_point`
	args := []any{}

	if warehouseID != nil {
		args = append(args, *warehouseID)
		sql += fmt.Sprintf(" AND s.warehouse_id = $%d", len(args))
	}
	sql += " ORDER BY s.warehouse_id, s.product_id"

	var rows []ledger.LowStock
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select low stock: %w", err)
	}
	return rows, nil
}

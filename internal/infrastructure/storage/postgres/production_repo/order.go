package production_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/production"
	"kardex/internal/infrastructure/storage/postgres"
)

const ordersTable = "prod_orders"

var orderColumns = []string{
	"id", "deletion_mark", "version",
	"created_at", "updated_at", "created_by", "updated_by",
	"number", "bom_id", "product_id", "warehouse_id",
	"planned_qty", "actual_qty", "status",
}

// OrderRepo implements production.OrderRepository.
type OrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewOrderRepo creates a production order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves an order by ID.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (production.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return production.Order{}, fmt.Errorf("build query: %w", err)
	}

	var o production.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return production.Order{}, apperror.NewNotFound("production order", orderID)
		}
		return production.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepo) List(ctx context.Context, filter production.OrderFilter) ([]production.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
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

	var out []production.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return out, nil
}

// Create inserts a new order.
func (r *OrderRepo) Create(ctx context.Context, o *production.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderColumns...).
		Values(
			o.ID, o.DeletionMark, o.Version,
			o.CreatedAt, o.UpdatedAt, o.CreatedBy, o.UpdatedBy,
			o.Number, o.BOMID, o.ProductID, o.WarehouseID,
			o.PlannedQty, o.ActualQty, o.Status,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Update saves order changes with optimistic locking.
func (r *OrderRepo) Update(ctx context.Context, o *production.Order) error {
	q := r.builder.Update(ordersTable).
		Set("updated_at", o.UpdatedAt).
		Set("updated_by", o.UpdatedBy).
		Set("actual_qty", o.ActualQty).
		Set("status", o.Status).
		Set("deletion_mark", o.DeletionMark).
		Set("version", o.Version+1).
		Where(squirrel.Eq{"id": o.ID, "version": o.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("production order", o.ID)
	}
	o.Version++
	return nil
}

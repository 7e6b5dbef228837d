package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/infrastructure/storage/postgres"
)

const warehousesTable = "cat_warehouses"

var warehouseColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name", "address", "allow_negative",
	"can_receive", "can_ship",
}

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewWarehouseRepo creates a warehouse repository.
func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a warehouse by primary key.
func (r *WarehouseRepo) GetByID(ctx context.Context, warehouseID id.ID) (warehouse.Warehouse, error) {
	return r.getOne(ctx, squirrel.Eq{"id": warehouseID}, warehouseID)
}

// GetByCode retrieves a warehouse by its unique code.
func (r *WarehouseRepo) GetByCode(ctx context.Context, code string) (warehouse.Warehouse, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code, "deletion_mark": false}, code)
}

func (r *WarehouseRepo) getOne(ctx context.Context, where squirrel.Eq, key any) (warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).
		From(warehousesTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return warehouse.Warehouse{}, fmt.Errorf("build query: %w", err)
	}

	var w warehouse.Warehouse
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &w, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return warehouse.Warehouse{}, apperror.NewNotFound("warehouse", key)
		}
		return warehouse.Warehouse{}, fmt.Errorf("get warehouse: %w", err)
	}
	return w, nil
}

// List returns all non-deleted warehouses.
func (r *WarehouseRepo) List(ctx context.Context) ([]warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).
		From(warehousesTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []warehouse.Warehouse
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select warehouses: %w", err)
	}
	return out, nil
}

// Create inserts a new warehouse.
func (r *WarehouseRepo) Create(ctx context.Context, w *warehouse.Warehouse) error {
	q := r.builder.Insert(warehousesTable).
		Columns(warehouseColumns...).
		Values(
			w.ID, w.DeletionMark, w.Version,
			w.Code, w.Name, w.Address, w.AllowNegative,
			w.CanReceive, w.CanShip,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

// Update saves changes with optimistic locking on version.
func (r *WarehouseRepo) Update(ctx context.Context, w *warehouse.Warehouse) error {
	q := r.builder.Update(warehousesTable).
		Set("code", w.Code).
		Set("name", w.Name).
		Set("address", w.Address).
		Set("allow_negative", w.AllowNegative).
		Set("can_receive", w.CanReceive).
		Set("can_ship", w.CanShip).
		Set("deletion_mark", w.DeletionMark).
		Set("version", w.Version+1).
		Where(squirrel.Eq{"id": w.ID, "version": w.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update warehouse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("warehouse", w.ID)
	}
	w.Version++
	return nil
}

// Delete soft-deletes a warehouse.
func (r *WarehouseRepo) Delete(ctx context.Context, warehouseID id.ID) error {
	q := r.builder.Update(warehousesTable).
		Set("deletion_mark", true).
		Where(squirrel.Eq{"id": warehouseID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete warehouse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("warehouse", warehouseID)
	}
	return nil
}

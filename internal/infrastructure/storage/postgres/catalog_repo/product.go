// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/catalogs/product"
	"kardex/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var productColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name", "sku", "unit", "reorder_point",
	"cost_price", "max_stock_level",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a product by primary key.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"id": productID}, productID)
}

// GetBySKU retrieves a product by its unique SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"sku": sku, "deletion_mark": false}, sku)
}

func (r *ProductRepo) getOne(ctx context.Context, where squirrel.Eq, key any) (product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return product.Product{}, apperror.NewNotFound("product", key)
		}
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns products matching the filter.
func (r *ProductRepo) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}

	q = q.OrderBy("code")
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

	var out []product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return out, nil
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.DeletionMark, p.Version,
			p.Code, p.Name, p.SKU, p.Unit, p.ReorderPoint,
			p.CostPrice, p.MaxStockLevel,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update saves changes with optimistic locking on version.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("code", p.Code).
		Set("name", p.Name).
		Set("sku", p.SKU).
		Set("unit", p.Unit).
		Set("reorder_point", p.ReorderPoint).
		Set("cost_price", p.CostPrice).
		Set("max_stock_level", p.MaxStockLevel).
		Set("deletion_mark", p.DeletionMark).
		Set("version", p.Version+1).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID)
	}
	p.Version++
	return nil
}

// Delete soft-deletes a product.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	q := r.builder.Update(productsTable).
		Set("deletion_mark", true).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

// Exists reports whether a non-deleted product exists.
func (r *ProductRepo) Exists(ctx context.Context, productID id.ID) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM cat_products WHERE id = $1 AND deletion_mark = false)`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	return exists, nil
}

// Package production_repo provides PostgreSQL implementations for the
// production repositories.
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

const (
	bomsTable     = "cat_boms"
	bomLinesTable = "cat_bom_lines"
)

var bomColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name", "product_id", "batch_size",
}

// BOMRepo implements production.BOMRepository.
// Lines live in their own table and are loaded with the header.
type BOMRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBOMRepo creates a BOM repository.
func NewBOMRepo(txm *postgres.TxManager) *BOMRepo {
	return &BOMRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a BOM with its lines.
func (r *BOMRepo) GetByID(ctx context.Context, bomID id.ID) (production.BOM, error) {
	return r.getOne(ctx, squirrel.Eq{"id": bomID}, bomID)
}

// GetByCode retrieves a BOM by its unique code.
func (r *BOMRepo) GetByCode(ctx context.Context, code string) (production.BOM, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code, "deletion_mark": false}, code)
}

func (r *BOMRepo) getOne(ctx context.Context, where squirrel.Eq, key any) (production.BOM, error) {
	q := r.builder.Select(bomColumns...).
		From(bomsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return production.BOM{}, fmt.Errorf("build query: %w", err)
	}

	var b production.BOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return production.BOM{}, apperror.NewNotFound("bill of materials", key)
		}
		return production.BOM{}, fmt.Errorf("get bom: %w", err)
	}

	if err := r.loadLines(ctx, &b); err != nil {
		return production.BOM{}, err
	}
	return b, nil
}

func (r *BOMRepo) loadLines(ctx context.Context, b *production.BOM) error {
	sql := `
		SELECT component_id, quantity
		FROM cat_bom_lines
		WHERE bom_id = $1
		ORDER BY line_no`

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &b.Lines, sql, b.ID); err != nil {
		return fmt.Errorf("select bom lines: %w", err)
	}
	return nil
}

// ListByProduct returns BOMs producing a product.
func (r *BOMRepo) ListByProduct(ctx context.Context, productID id.ID) ([]production.BOM, error) {
	return r.listWhere(ctx, squirrel.Eq{"product_id": productID, "deletion_mark": false})
}

// List returns all non-deleted BOMs.
func (r *BOMRepo) List(ctx context.Context) ([]production.BOM, error) {
	return r.listWhere(ctx, squirrel.Eq{"deletion_mark": false})
}

func (r *BOMRepo) listWhere(ctx context.Context, where squirrel.Eq) ([]production.BOM, error) {
	q := r.builder.Select(bomColumns...).
		From(bomsTable).
		Where(where).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []production.BOM
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select boms: %w", err)
	}

	for i := range out {
		if err := r.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Create inserts a BOM header and its lines atomically.
func (r *BOMRepo) Create(ctx context.Context, b *production.BOM) error {
	q := r.builder.Insert(bomsTable).
		Columns(bomColumns...).
		Values(
			b.ID, b.DeletionMark, b.Version,
			b.Code, b.Name, b.ProductID, b.BatchSize,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom: %w", err)
	}
	return r.insertLines(ctx, b)
}

func (r *BOMRepo) insertLines(ctx context.Context, b *production.BOM) error {
	q := r.builder.Insert(bomLinesTable).
		Columns("bom_id", "line_no", "component_id", "quantity")
	for i, line := range b.Lines {
		q = q.Values(b.ID, i+1, line.ComponentID, line.Quantity)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bom lines: %w", err)
	}
	return nil
}

// Update rewrites the header and replaces the lines.
func (r *BOMRepo) Update(ctx context.Context, b *production.BOM) error {
	q := r.builder.Update(bomsTable).
		Set("code", b.Code).
		Set("name", b.Name).
		Set("product_id", b.ProductID).
		Set("batch_size", b.BatchSize).
		Set("deletion_mark", b.DeletionMark).
		Set("version", b.Version+1).
		Where(squirrel.Eq{"id": b.ID, "version": b.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update bom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("bill of materials", b.ID)
	}
	b.Version++

	if _, err := querier.Exec(ctx, "DELETE FROM cat_bom_lines WHERE bom_id = $1", b.ID); err != nil {
		return fmt.Errorf("delete bom lines: %w", err)
	}
	return r.insertLines(ctx, b)
}

// Delete soft-deletes a BOM.
func (r *BOMRepo) Delete(ctx context.Context, bomID id.ID) error {
	q := r.builder.Update(bomsTable).
		Set("deletion_mark", true).
		Where(squirrel.Eq{"id": bomID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete bom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("bill of materials", bomID)
	}
	return nil
}

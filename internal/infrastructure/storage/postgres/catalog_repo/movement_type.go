package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/movement"
	"kardex/internal/infrastructure/storage/postgres"
)

const movementTypesTable = "cat_movement_types"

var movementTypeColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name", "direction",
	"requires_reference", "affects_cost", "is_system",
}

// MovementTypeRepo implements movement.Repository.
type MovementTypeRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewMovementTypeRepo creates a movement type repository.
func NewMovementTypeRepo(txm *postgres.TxManager) *MovementTypeRepo {
	return &MovementTypeRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a type by primary key.
func (r *MovementTypeRepo) GetByID(ctx context.Context, typeID id.ID) (movement.Type, error) {
	return r.getOne(ctx, squirrel.Eq{"id": typeID}, typeID)
}

// GetByCode retrieves a type by its unique code.
func (r *MovementTypeRepo) GetByCode(ctx context.Context, code string) (movement.Type, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *MovementTypeRepo) getOne(ctx context.Context, where squirrel.Eq, key any) (movement.Type, error) {
	q := r.builder.Select(movementTypeColumns...).
		From(movementTypesTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return movement.Type{}, fmt.Errorf("build query: %w", err)
	}

	var t movement.Type
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return movement.Type{}, apperror.NewNotFound("movement type", key)
		}
		return movement.Type{}, fmt.Errorf("get movement type: %w", err)
	}
	return t, nil
}

// List returns all types, system first, then by code.
func (r *MovementTypeRepo) List(ctx context.Context) ([]movement.Type, error) {
	q := r.builder.Select(movementTypeColumns...).
		From(movementTypesTable).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("is_system DESC", "code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []movement.Type
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select movement types: %w", err)
	}
	return out, nil
}

// Create inserts a new type.
func (r *MovementTypeRepo) Create(ctx context.Context, t *movement.Type) error {
	q := r.builder.Insert(movementTypesTable).
		Columns(movementTypeColumns...).
		Values(
			t.ID, t.DeletionMark, t.Version,
			t.Code, t.Name, t.Direction,
			t.RequiresReference, t.AffectsCost, t.IsSystem,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement type: %w", err)
	}
	return nil
}

// Update saves changes with optimistic locking on version.
func (r *MovementTypeRepo) Update(ctx context.Context, t *movement.Type) error {
	q := r.builder.Update(movementTypesTable).
		Set("name", t.Name).
		Set("requires_reference", t.RequiresReference).
		Set("affects_cost", t.AffectsCost).
		Set("deletion_mark", t.DeletionMark).
		Set("version", t.Version+1).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("movement type", t.ID)
	}
	t.Version++
	return nil
}

// Delete soft-deletes a type.
func (r *MovementTypeRepo) Delete(ctx context.Context, typeID id.ID) error {
	q := r.builder.Update(movementTypesTable).
		Set("deletion_mark", true).
		Where(squirrel.Eq{"id": typeID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete movement type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement type", typeID)
	}
	return nil
}

package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/postgres"
)

const reservationsTable = "stock_reservations"

var reservationColumns = []string{
	"id", "warehouse_id", "product_id", "quantity",
	"reference_type", "reference_id", "status",
	"created_at", "updated_at", "created_by",
}

// ReservationRepo implements ledger.ReservationRepository.
type ReservationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReservationRepo creates a reservation repository.
func NewReservationRepo(txm *postgres.TxManager) *ReservationRepo {
	return &ReservationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new reservation.
func (r *ReservationRepo) Create(ctx context.Context, res *ledger.Reservation) error {
	q := r.builder.Insert(reservationsTable).
		Columns(reservationColumns...).
		Values(
			res.ID, res.WarehouseID, res.ProductID, res.Quantity,
			res.ReferenceType, res.ReferenceID, res.Status,
			res.CreatedAt, res.UpdatedAt, res.CreatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, reservationID id.ID) (ledger.Reservation, error) {
	q := r.builder.Select(reservationColumns...).
		From(reservationsTable).
		Where(squirrel.Eq{"id": reservationID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Reservation{}, fmt.Errorf("build query: %w", err)
	}

	var res ledger.Reservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &res, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Reservation{}, apperror.NewNotFound("reservation", reservationID)
		}
		return ledger.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// Update saves quantity and status changes.
func (r *ReservationRepo) Update(ctx context.Context, res *ledger.Reservation) error {
	q := r.builder.Update(reservationsTable).
		Set("quantity", res.Quantity).
		Set("status", res.Status).
		Set("updated_at", res.UpdatedAt).
		Where(squirrel.Eq{"id": res.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("reservation", res.ID)
	}
	return nil
}

// ListActive returns active holds for a location.
func (r *ReservationRepo) ListActive(ctx context.Context, warehouseID, productID id.ID) ([]ledger.Reservation, error) {
	return r.list(ctx, squirrel.Eq{
		"warehouse_id": warehouseID,
		"product_id":   productID,
		"status":       ledger.ReservationActive,
	})
}

// ListByReference returns holds tied to a source document.
func (r *ReservationRepo) ListByReference(ctx context.Context, refType, refID string) ([]ledger.Reservation, error) {
	return r.list(ctx, squirrel.Eq{
		"reference_type": refType,
		"reference_id":   refID,
	})
}

func (r *ReservationRepo) list(ctx context.Context, where squirrel.Eq) ([]ledger.Reservation, error) {
	q := r.builder.Select(reservationColumns...).
		From(reservationsTable).
		Where(where).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []ledger.Reservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	return out, nil
}

// Package ledger_repo provides PostgreSQL implementations of the ledger
// repositories.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/movement"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	entriesTable = "ledger_entries"
	entriesSeq   = "ledger_entries_seq_seq"
)

var entryColumns = []string{
	"id", "seq", "type_code", "direction",
	"product_id", "warehouse_id",
	"quantity", "unit_cost", "affects_cost",
	"reference_type", "reference_id", "reversal_of",
	"posted_at", "posted_by",
}

// EntryRepo implements ledger.EntryRepository.
type EntryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewEntryRepo creates a journal repository.
func NewEntryRepo(txm *postgres.TxManager) *EntryRepo {
	return &EntryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert appends one entry and reads back its journal position.
func (r *EntryRepo) Insert(ctx context.Context, e *ledger.Entry) error {
	q := r.builder.Insert(entriesTable).
		Columns(
			"id", "type_code", "direction",
			"product_id", "warehouse_id",
			"quantity", "unit_cost", "affects_cost",
			"reference_type", "reference_id", "reversal_of",
			"posted_at", "posted_by",
		).
		Values(
			e.ID, e.TypeCode, e.Direction,
			e.ProductID, e.WarehouseID,
			e.Quantity, e.UnitCost, e.AffectsCost,
			e.ReferenceType, e.ReferenceID, e.ReversalOf,
			e.PostedAt, e.PostedBy,
		).
		Suffix("RETURNING seq")

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&e.Seq); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// InsertBatch appends entries through the COPY protocol. Journal
// positions are reserved from the sequence up front so COPY rows carry
// them explicitly.
func (r *EntryRepo) InsertBatch(ctx context.Context, entries []*ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	inserter := postgres.NewBatchInserter(r.txm)
	seqs, err := inserter.NextSequenceValues(ctx, entriesSeq, len(entries))
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(entries))
	for i, e := range entries {
		e.Seq = seqs[i]
		rows = append(rows, []any{
			e.ID, e.Seq, e.TypeCode, e.Direction,
			e.ProductID, e.WarehouseID,
			e.Quantity, e.UnitCost, e.AffectsCost,
			e.ReferenceType, e.ReferenceID, e.ReversalOf,
			e.PostedAt, e.PostedBy,
		})
	}

	if _, err := inserter.CopyFromSlice(ctx, entriesTable, entryColumns, rows); err != nil {
		return fmt.Errorf("copy entries: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry.
func (r *EntryRepo) GetByID(ctx context.Context, entryID id.ID) (ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"id": entryID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("build query: %w", err)
	}

	var e ledger.Entry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.Entry{}, apperror.NewNotFound("entry", entryID)
		}
		return ledger.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// HasReversal reports whether a compensating entry exists.
func (r *EntryRepo) HasReversal(ctx context.Context, entryID id.ID) (bool, error) {
	sql := `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE reversal_of = $1)`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, entryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check reversal: %w", err)
	}
	return exists, nil
}

// List returns entries matching the filter in journal order.
func (r *EntryRepo) List(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable)

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.TypeCode != "" {
		q = q.Where(squirrel.Eq{"type_code": filter.TypeCode})
	}
	if filter.ReferenceType != "" {
		q = q.Where(squirrel.Eq{"reference_type": filter.ReferenceType})
	}
	if filter.ReferenceID != "" {
		q = q.Where(squirrel.Eq{"reference_id": filter.ReferenceID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"posted_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"posted_at": *filter.ToDate})
	}

	q = q.OrderBy("seq")
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

	var entries []ledger.Entry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// ListByLocation returns the full journal for one location.
func (r *EntryRepo) ListByLocation(ctx context.Context, warehouseID, productID id.ID) ([]ledger.Entry, error) {
	return r.List(ctx, ledger.EntryFilter{
		WarehouseID: &warehouseID,
		ProductID:   &productID,
	})
}

// GetTurnover aggregates receipts and expenses for a period in SQL.
func (r *EntryRepo) GetTurnover(ctx context.Context, filter ledger.TurnoverFilter) (ledger.Turnover, error) {
	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(CASE WHEN posted_at < $1 AND direction = '%[1]s' THEN quantity
			              WHEN posted_at < $1 THEN -quantity ELSE 0 END), 0) AS opening,
			COALESCE(SUM(CASE WHEN posted_at >= $1 AND direction = '%[1]s' THEN quantity ELSE 0 END), 0) AS receipt,
			COALESCE(SUM(CASE WHEN posted_at >= $1 AND direction = '%[2]s' THEN quantity ELSE 0 END), 0) AS expense
		FROM ledger_entries
		WHERE posted_at <= $2`, movement.DirectionIn, movement.DirectionOut)
	args := []any{filter.FromDate, filter.ToDate}

	if filter.WarehouseID != nil {
		args = append(args, *filter.WarehouseID)
		sql += fmt.Sprintf(" AND warehouse_id = $%d", len(args))
	}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		sql += fmt.Sprintf(" AND product_id = $%d", len(args))
	}

	var opening, receipt, expense types.Quantity
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&opening, &receipt, &expense); err != nil {
		return ledger.Turnover{}, fmt.Errorf("turnover: %w", err)
	}

	return ledger.Turnover{
		OpeningBalance: opening,
		Receipt:        receipt,
		Expense:        expense,
		ClosingBalance: opening.Add(receipt).Sub(expense),
	}, nil
}

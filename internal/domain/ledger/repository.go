package ledger

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// EntryRepository persists the append-only movement journal.
type EntryRepository interface {
	// Insert appends one entry and fills in its Seq
	Insert(ctx context.Context, e *Entry) error

	// InsertBatch appends entries preserving order (COPY protocol in the
	// postgres implementation). Seq values are filled in on return.
	InsertBatch(ctx context.Context, entries []*Entry) error

	// GetByID retrieves a single entry
	GetByID(ctx context.Context, entryID id.ID) (Entry, error)

	// HasReversal reports whether a compensating entry exists for entryID
	HasReversal(ctx context.Context, entryID id.ID) (bool, error)

	// List returns entries matching the filter in ascending Seq order
	List(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// ListByLocation returns the full journal for one (warehouse, product)
	// pair in ascending Seq order, for replay
	ListByLocation(ctx context.Context, warehouseID, productID id.ID) ([]Entry, error)

	// GetTurnover aggregates receipt and expense totals for a period
	GetTurnover(ctx context.Context, filter TurnoverFilter) (Turnover, error)
}

// EntryFilter narrows journal queries.
type EntryFilter struct {
	WarehouseID   *id.ID
	ProductID     *id.ID
	TypeCode      string
	ReferenceType string
	ReferenceID   string
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}

// TurnoverFilter scopes a turnover report.
type TurnoverFilter struct {
	WarehouseID *id.ID
	ProductID   *id.ID
	FromDate    time.Time
	ToDate      time.Time
}

// Turnover is the receipt/expense report for a period.
type Turnover struct {
	OpeningBalance types.Quantity `json:"openingBalance"`
	Receipt        types.Quantity `json:"receipt"`
	Expense        types.Quantity `json:"expense"`
	ClosingBalance types.Quantity `json:"closingBalance"`
}

// StockRepository persists the materialized stock aggregate.
type StockRepository interface {
	// Get returns the aggregate without locking. Missing rows come back
	// as a zero-valued StockLocation, not an error.
	Get(ctx context.Context, warehouseID, productID id.ID) (StockLocation, error)

	// GetForUpdate locks the aggregate row (SELECT ... FOR UPDATE),
	// inserting a zero row first if none exists. Must be called inside
	// a transaction.
	GetForUpdate(ctx context.Context, warehouseID, productID id.ID) (StockLocation, error)

	// Save upserts the aggregate row
	Save(ctx context.Context, s *StockLocation) error

	// ListByWarehouse returns aggregates for a warehouse
	ListByWarehouse(ctx context.Context, warehouseID id.ID, filter StockFilter) ([]StockLocation, error)

	// ListByProduct returns aggregates across warehouses for a product
	ListByProduct(ctx context.Context, productID id.ID) ([]StockLocation, error)

	// ListBelow returns aggregates where available stock is under the
	// product's reorder threshold
	ListBelow(ctx context.Context, warehouseID *id.ID) ([]LowStock, error)
}

// StockFilter narrows aggregate listings.
type StockFilter struct {
	ProductIDs  []id.ID
	ExcludeZero bool
	Limit       int
	Offset      int
}

// LowStock pairs an aggregate with its product's reorder threshold.
type LowStock struct {
	StockLocation
	ReorderPoint  types.Quantity `db:"reorder_point" json:"reorderPoint"`
	MaxStockLevel types.Quantity `db:"max_stock_level" json:"maxStockLevel"`
}

// ReservationRepository persists reservation records.
type ReservationRepository interface {
	// Create inserts a new active reservation
	Create(ctx context.Context, r *Reservation) error

	// GetByID retrieves a reservation
	GetByID(ctx context.Context, reservationID id.ID) (Reservation, error)

	// Update saves quantity and status changes
	Update(ctx context.Context, r *Reservation) error

	// ListActive returns active reservations for a location
	ListActive(ctx context.Context, warehouseID, productID id.ID) ([]Reservation, error)

	// ListByReference returns reservations for a source document
	ListByReference(ctx context.Context, refType, refID string) ([]Reservation, error)
}

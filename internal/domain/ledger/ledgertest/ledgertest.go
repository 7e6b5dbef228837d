// Package ledgertest provides in-memory repository implementations for
// exercising the posting engine without a database.
package ledgertest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/movement"
)

// TxManager satisfies tx.Manager by running the function directly.
type TxManager struct{}

func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Movement type repository ---

// TypeRepo is an in-memory movement.Repository.
type TypeRepo struct {
	mu    sync.Mutex
	types map[string]movement.Type
}

// NewTypeRepo returns a repo pre-seeded with the system types.
func NewTypeRepo() *TypeRepo {
	r := &TypeRepo{types: make(map[string]movement.Type)}
	for _, t := range movement.SystemTypes() {
		r.types[t.Code] = t
	}
	return r
}

func (r *TypeRepo) GetByID(ctx context.Context, typeID id.ID) (movement.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t.ID == typeID {
			return t, nil
		}
	}
	return movement.Type{}, apperror.NewNotFound("movement type", typeID)
}

func (r *TypeRepo) GetByCode(ctx context.Context, code string) (movement.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.types[code]; ok {
		return t, nil
	}
	return movement.Type{}, apperror.NewNotFound("movement type", code)
}

func (r *TypeRepo) List(ctx context.Context) ([]movement.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]movement.Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *TypeRepo) Create(ctx context.Context, t *movement.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Code] = *t
	return nil
}

func (r *TypeRepo) Update(ctx context.Context, t *movement.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.Touch()
	r.types[t.Code] = *t
	return nil
}

func (r *TypeRepo) Delete(ctx context.Context, typeID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, t := range r.types {
		if t.ID == typeID {
			t.MarkDeleted()
			r.types[code] = t
			return nil
		}
	}
	return apperror.NewNotFound("movement type", typeID)
}

// --- Journal ---

// EntryRepo is an in-memory ledger.EntryRepository.
type EntryRepo struct {
	mu      sync.Mutex
	seq     int64
	Entries []ledger.Entry
}

func NewEntryRepo() *EntryRepo { return &EntryRepo{} }

func (r *EntryRepo) Insert(ctx context.Context, e *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	r.Entries = append(r.Entries, *e)
	return nil
}

func (r *EntryRepo) InsertBatch(ctx context.Context, entries []*ledger.Entry) error {
	for _, e := range entries {
		if err := r.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *EntryRepo) GetByID(ctx context.Context, entryID id.ID) (ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return ledger.Entry{}, apperror.NewNotFound("entry", entryID)
}

func (r *EntryRepo) HasReversal(ctx context.Context, entryID id.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Entries {
		if e.ReversalOf != nil && *e.ReversalOf == entryID {
			return true, nil
		}
	}
	return false, nil
}

func (r *EntryRepo) List(ctx context.Context, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Entry
	for _, e := range r.Entries {
		if filter.WarehouseID != nil && e.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if filter.TypeCode != "" && e.TypeCode != filter.TypeCode {
			continue
		}
		if filter.ReferenceType != "" && e.ReferenceType != filter.ReferenceType {
			continue
		}
		if filter.ReferenceID != "" && e.ReferenceID != filter.ReferenceID {
			continue
		}
		if filter.FromDate != nil && e.PostedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && e.PostedAt.After(*filter.ToDate) {
			continue
		}
		out = append(out, e)
	}
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *EntryRepo) ListByLocation(ctx context.Context, warehouseID, productID id.ID) ([]ledger.Entry, error) {
	return r.List(ctx, ledger.EntryFilter{WarehouseID: &warehouseID, ProductID: &productID})
}

func (r *EntryRepo) GetTurnover(ctx context.Context, filter ledger.TurnoverFilter) (ledger.Turnover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := ledger.Turnover{
		OpeningBalance: types.Zero(),
		Receipt:        types.Zero(),
		Expense:        types.Zero(),
	}
	for _, e := range r.Entries {
		if filter.WarehouseID != nil && e.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		switch {
		case e.PostedAt.Before(filter.FromDate):
			t.OpeningBalance = t.OpeningBalance.Add(e.SignedQuantity())
		case !e.PostedAt.After(filter.ToDate):
			if e.Direction == movement.DirectionIn {
				t.Receipt = t.Receipt.Add(e.Quantity)
			} else {
				t.Expense = t.Expense.Add(e.Quantity)
			}
		}
	}
	t.ClosingBalance = t.OpeningBalance.Add(t.Receipt).Sub(t.Expense)
	return t, nil
}

// --- Stock aggregate ---

// StockRepo is an in-memory ledger.StockRepository.
type StockRepo struct {
	mu   sync.Mutex
	rows map[string]ledger.StockLocation

	// ReorderPoints and MaxLevels back ListBelow, keyed by product id
	ReorderPoints map[id.ID]types.Quantity
	MaxLevels     map[id.ID]types.Quantity
}

func NewStockRepo() *StockRepo {
	return &StockRepo{
		rows:          make(map[string]ledger.StockLocation),
		ReorderPoints: make(map[id.ID]types.Quantity),
		MaxLevels:     make(map[id.ID]types.Quantity),
	}
}

func key(warehouseID, productID id.ID) string {
	return warehouseID.String() + "/" + productID.String()
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

func (r *StockRepo) Get(ctx context.Context, warehouseID, productID id.ID) (ledger.StockLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loc, ok := r.rows[key(warehouseID, productID)]; ok {
		return loc, nil
	}
	return emptyLocation(warehouseID, productID), nil
}

func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, productID id.ID) (ledger.StockLocation, error) {
	return r.Get(ctx, warehouseID, productID)
}

func (r *StockRepo) Save(ctx context.Context, s *ledger.StockLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[key(s.WarehouseID, s.ProductID)] = *s
	return nil
}

func (r *StockRepo) ListByWarehouse(ctx context.Context, warehouseID id.ID, filter ledger.StockFilter) ([]ledger.StockLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.StockLocation
	for k, loc := range r.rows {
		if !strings.HasPrefix(k, warehouseID.String()+"/") {
			continue
		}
		if filter.ExcludeZero && loc.OnHand.IsZero() {
			continue
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

func (r *StockRepo) ListByProduct(ctx context.Context, productID id.ID) ([]ledger.StockLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.StockLocation
	for _, loc := range r.rows {
		if loc.ProductID == productID {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WarehouseID.String() < out[j].WarehouseID.String()
	})
	return out, nil
}

func (r *StockRepo) ListBelow(ctx context.Context, warehouseID *id.ID) ([]ledger.LowStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.LowStock
	for _, loc := range r.rows {
		if warehouseID != nil && loc.WarehouseID != *warehouseID {
			continue
		}
		rp, ok := r.ReorderPoints[loc.ProductID]
		if !ok || !rp.IsPositive() {
			continue
		}
		if loc.Available().LessThan(rp) {
			ml := types.Zero()
			if v, ok := r.MaxLevels[loc.ProductID]; ok {
				ml = v
			}
			out = append(out, ledger.LowStock{StockLocation: loc, ReorderPoint: rp, MaxStockLevel: ml})
		}
	}
	return out, nil
}

// --- Reservations ---

// ReservationRepo is an in-memory ledger.ReservationRepository.
type ReservationRepo struct {
	mu   sync.Mutex
	rows map[id.ID]ledger.Reservation
}

func NewReservationRepo() *ReservationRepo {
	return &ReservationRepo{rows: make(map[id.ID]ledger.Reservation)}
}

func (r *ReservationRepo) Create(ctx context.Context, res *ledger.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[res.ID] = *res
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, reservationID id.ID) (ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.rows[reservationID]; ok {
		return res, nil
	}
	return ledger.Reservation{}, apperror.NewNotFound("reservation", reservationID)
}

func (r *ReservationRepo) Update(ctx context.Context, res *ledger.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[res.ID]; !ok {
		return apperror.NewNotFound("reservation", res.ID)
	}
	r.rows[res.ID] = *res
	return nil
}

func (r *ReservationRepo) ListActive(ctx context.Context, warehouseID, productID id.ID) ([]ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Reservation
	for _, res := range r.rows {
		if res.Status == ledger.ReservationActive &&
			res.WarehouseID == warehouseID && res.ProductID == productID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ReservationRepo) ListByReference(ctx context.Context, refType, refID string) ([]ledger.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Reservation
	for _, res := range r.rows {
		if res.ReferenceType == refType && res.ReferenceID == refID {
			out = append(out, res)
		}
	}
	return out, nil
}

// --- Catalog sources ---

// Warehouses is an in-memory ledger.WarehouseSource.
type Warehouses struct {
	mu       sync.Mutex
	policies map[id.ID]ledger.WarehousePolicy
}

func NewWarehouses() *Warehouses {
	return &Warehouses{policies: make(map[id.ID]ledger.WarehousePolicy)}
}

// Add registers a warehouse open in both directions and returns its id.
func (w *Warehouses) Add(allowNegative bool) id.ID {
	return w.AddWithPolicy(ledger.WarehousePolicy{
		AllowNegative: allowNegative,
		CanReceive:    true,
		CanShip:       true,
	})
}

// AddWithPolicy registers a warehouse with an explicit policy.
func (w *Warehouses) AddWithPolicy(policy ledger.WarehousePolicy) id.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	wid := id.New()
	policy.ID = wid
	w.policies[wid] = policy
	return wid
}

func (w *Warehouses) Policy(ctx context.Context, warehouseID id.ID) (ledger.WarehousePolicy, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.policies[warehouseID]; ok {
		return p, nil
	}
	return ledger.WarehousePolicy{}, apperror.NewNotFound("warehouse", warehouseID)
}

// Products is an in-memory ledger.ProductSource.
type Products struct {
	mu  sync.Mutex
	ids map[id.ID]struct{}

	// CostPrices backs CostPrice lookups, zero when unset
	CostPrices map[id.ID]types.Money
}

func NewProducts() *Products {
	return &Products{
		ids:        make(map[id.ID]struct{}),
		CostPrices: make(map[id.ID]types.Money),
	}
}

// Add registers a product and returns its id.
func (p *Products) Add() id.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	pid := id.New()
	p.ids[pid] = struct{}{}
	return pid
}

func (p *Products) Exists(ctx context.Context, productID id.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[productID]
	return ok, nil
}

func (p *Products) CostPrice(ctx context.Context, productID id.ID) (types.Money, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.ids[productID]; !ok {
		return types.Zero(), apperror.NewNotFound("product", productID)
	}
	if price, ok := p.CostPrices[productID]; ok {
		return price, nil
	}
	return types.Zero(), nil
}

// Fixture bundles the fakes with a ready posting engine.
type Fixture struct {
	Entries      *EntryRepo
	Stocks       *StockRepo
	Reservations *ReservationRepo
	Types        *TypeRepo
	Registry     *movement.Registry
	Warehouses   *Warehouses
	Products     *Products
	Service      *ledger.Service
}

// NewFixture wires a posting engine over fresh in-memory repositories.
func NewFixture() *Fixture {
	f := &Fixture{
		Entries:      NewEntryRepo(),
		Stocks:       NewStockRepo(),
		Reservations: NewReservationRepo(),
		Types:        NewTypeRepo(),
		Warehouses:   NewWarehouses(),
		Products:     NewProducts(),
	}
	f.Registry = movement.NewRegistry(f.Types)
	f.Service = ledger.NewService(
		TxManager{}, f.Entries, f.Stocks, f.Reservations,
		f.Registry, f.Warehouses, f.Products,
	)
	return f
}

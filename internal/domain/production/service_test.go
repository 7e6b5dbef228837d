package production_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/ledger/ledgertest"
	"kardex/internal/domain/movement"
	"kardex/internal/domain/production"
)

func qty(s string) types.Quantity { return types.MustQuantity(s) }
func money(s string) types.Money  { return types.MustMoney(s) }

func moneyp(s string) *types.Money {
	m := money(s)
	return &m
}

func lineFor(t *testing.T, lines []production.BOMLine, componentID id.ID) production.BOMLine {
	t.Helper()
	for _, l := range lines {
		if l.ComponentID == componentID {
			return l
		}
	}
	t.Fatalf("component %s not among the requirements", componentID)
	return production.BOMLine{}
}

// --- in-memory repositories ---

type bomRepo struct {
	mu   sync.Mutex
	rows map[id.ID]production.BOM
}

func newBOMRepo() *bomRepo { return &bomRepo{rows: make(map[id.ID]production.BOM)} }

func (r *bomRepo) GetByID(ctx context.Context, bomID id.ID) (production.BOM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.rows[bomID]; ok {
		return b, nil
	}
	return production.BOM{}, apperror.NewNotFound("bill of materials", bomID)
}

func (r *bomRepo) GetByCode(ctx context.Context, code string) (production.BOM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if b.Code == code {
			return b, nil
		}
	}
	return production.BOM{}, apperror.NewNotFound("bill of materials", code)
}

func (r *bomRepo) ListByProduct(ctx context.Context, productID id.ID) ([]production.BOM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []production.BOM
	for _, b := range r.rows {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *bomRepo) List(ctx context.Context) ([]production.BOM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]production.BOM, 0, len(r.rows))
	for _, b := range r.rows {
		out = append(out, b)
	}
	return out, nil
}

func (r *bomRepo) Create(ctx context.Context, b *production.BOM) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[b.ID] = *b
	return nil
}

func (r *bomRepo) Update(ctx context.Context, b *production.BOM) error {
	return r.Create(ctx, b)
}

func (r *bomRepo) Delete(ctx context.Context, bomID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, bomID)
	return nil
}

type orderRepo struct {
	mu   sync.Mutex
	rows map[id.ID]production.Order
}

func newOrderRepo() *orderRepo { return &orderRepo{rows: make(map[id.ID]production.Order)} }

func (r *orderRepo) GetByID(ctx context.Context, orderID id.ID) (production.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.rows[orderID]; ok {
		return o, nil
	}
	return production.Order{}, apperror.NewNotFound("production order", orderID)
}

func (r *orderRepo) List(ctx context.Context, filter production.OrderFilter) ([]production.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []production.Order
	for _, o := range r.rows {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.ProductID != nil && o.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && o.WarehouseID != *filter.WarehouseID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) Create(ctx context.Context, o *production.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[o.ID] = *o
	return nil
}

func (r *orderRepo) Update(ctx context.Context, o *production.Order) error {
	return r.Create(ctx, o)
}

// --- fixture ---

type fixture struct {
	ledger  *ledgertest.Fixture
	svc     *production.Service
	wid     id.ID
	output  id.ID
	compX   id.ID
	compY   id.ID
	bom     production.BOM
}

// newFixture builds a BOM producing 10 units per batch from
// 4 units of X and 2 units of Y, with component stock on hand.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	lf := ledgertest.NewFixture()
	f := &fixture{
		ledger: lf,
		svc:    production.NewService(ledgertest.TxManager{}, lf.Service, newBOMRepo(), newOrderRepo()),
		wid:    lf.Warehouses.Add(false),
		output: lf.Products.Add(),
		compX:  lf.Products.Add(),
		compY:  lf.Products.Add(),
	}

	ctx := context.Background()
	for _, in := range []struct {
		pid      id.ID
		quantity string
		cost     string
	}{
		{f.compX, "100", "3.00"},
		{f.compY, "100", "1.50"},
	} {
		_, err := lf.Service.Post(ctx, ledger.PostCommand{
			TypeCode:      movement.TypePurchaseReceipt,
			ProductID:     in.pid,
			WarehouseID:   f.wid,
			Quantity:      qty(in.quantity),
			UnitCost:      moneyp(in.cost),
			ReferenceType: "purchase_order",
			ReferenceID:   "PO-1",
		})
		require.NoError(t, err)
	}

	f.bom = production.NewBOM("BOM-1", "Widget recipe", f.output, qty("10"))
	f.bom.Lines = []production.BOMLine{
		{ComponentID: f.compX, Quantity: qty("4")},
		{ComponentID: f.compY, Quantity: qty("2")},
	}
	require.NoError(t, f.svc.CreateBOM(ctx, &f.bom))
	return f
}

func (f *fixture) createOrder(t *testing.T, planned string) production.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), production.CreateOrderCommand{
		BOMID:       f.bom.ID,
		WarehouseID: f.wid,
		PlannedQty:  qty(planned),
	})
	require.NoError(t, err)
	return order
}

// --- tests ---

func TestBOMValidation(t *testing.T) {
	pid := id.New()
	ctx := context.Background()

	b := production.NewBOM("B1", "No lines", pid, qty("10"))
	require.Error(t, b.Validate(ctx))

	b.Lines = []production.BOMLine{{ComponentID: pid, Quantity: qty("1")}}
	require.Error(t, b.Validate(ctx), "product cannot be its own component")

	comp := id.New()
	b.Lines = []production.BOMLine{
		{ComponentID: comp, Quantity: qty("1")},
		{ComponentID: comp, Quantity: qty("2")},
	}
	require.Error(t, b.Validate(ctx), "duplicate component")

	b.Lines = []production.BOMLine{{ComponentID: comp, Quantity: qty("1")}}
	require.NoError(t, b.Validate(ctx))
}

func TestRequirementsScaleByBatch(t *testing.T) {
	f := newFixture(t)

	reqs := f.bom.Requirements(qty("5"))
	require.Len(t, reqs, 2)
	reqX := lineFor(t, reqs, f.compX)
	reqY := lineFor(t, reqs, f.compY)
	require.True(t, reqX.Quantity.Equal(qty("2")), "4 * 5/10 = 2, got %s", reqX.Quantity)
	require.True(t, reqY.Quantity.Equal(qty("1")), "2 * 5/10 = 1, got %s", reqY.Quantity)
}

func TestComponentWalkOrderIgnoresLineOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Restate the recipe with its lines reversed; requirements and
	// consumption postings still walk components in id order, so
	// concurrent orders lock component rows in the same sequence.
	f.bom.Lines = []production.BOMLine{f.bom.Lines[1], f.bom.Lines[0]}
	require.NoError(t, f.svc.UpdateBOM(ctx, &f.bom))

	reqs := f.bom.Requirements(qty("10"))
	require.Len(t, reqs, 2)
	require.Less(t, reqs[0].ComponentID.String(), reqs[1].ComponentID.String())

	order := f.createOrder(t, "10")
	_, err := f.svc.Release(ctx, order.ID)
	require.NoError(t, err)
	result, err := f.svc.Complete(ctx, order.ID, qty("10"))
	require.NoError(t, err)
	require.Len(t, result.Consumption, 2)
	require.Less(t, result.Consumption[0].ProductID.String(),
		result.Consumption[1].ProductID.String())
}

func TestReleaseReservesComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, "10")
	released, err := f.svc.Release(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, production.OrderReleased, released.Status)

	locX, err := f.ledger.Service.GetStock(ctx, f.wid, f.compX)
	require.NoError(t, err)
	require.True(t, locX.Reserved.Equal(qty("4")))

	locOut, err := f.ledger.Service.GetStock(ctx, f.wid, f.output)
	require.NoError(t, err)
	require.True(t, locOut.Ordered.Equal(qty("10")))

	_, err = f.svc.Release(ctx, order.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule), "cannot release twice")
}

func TestReleaseFailsWhenComponentsShort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Needs 4*300/10 = 120 of X but only 100 on hand.
	order := f.createOrder(t, "300")
	_, err := f.svc.Release(ctx, order.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailableStock))
}

func TestCompleteScalesConsumptionByActual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, "10")
	_, err := f.svc.Release(ctx, order.ID)
	require.NoError(t, err)

	result, err := f.svc.Complete(ctx, order.ID, qty("5"))
	require.NoError(t, err)
	require.Equal(t, production.OrderCompleted, result.Order.Status)
	require.True(t, result.Order.ActualQty.Equal(qty("5")))
	require.Len(t, result.Consumption, 2)

	// Half the batch consumes half the stated lines: X 2, Y 1.
	consumed := map[id.ID]types.Quantity{}
	for _, e := range result.Consumption {
		require.Equal(t, movement.TypeProductionOut, e.TypeCode)
		consumed[e.ProductID] = e.Quantity
	}
	require.True(t, consumed[f.compX].Equal(qty("2")))
	require.True(t, consumed[f.compY].Equal(qty("1")))

	// Output cost: (2*3.00 + 1*1.50) / 5 = 1.50 per unit.
	require.Equal(t, movement.TypeProductionIn, result.Output.TypeCode)
	require.True(t, result.Output.UnitCost.Equal(money("1.50")),
		"output cost %s", result.Output.UnitCost)

	outLoc, err := f.ledger.Service.GetStock(ctx, f.wid, f.output)
	require.NoError(t, err)
	require.True(t, outLoc.OnHand.Equal(qty("5")))
	require.True(t, outLoc.AvgCost.Equal(money("1.50")))
	require.True(t, outLoc.Ordered.IsZero())

	// Component holds are gone and stock reflects actual consumption.
	locX, err := f.ledger.Service.GetStock(ctx, f.wid, f.compX)
	require.NoError(t, err)
	require.True(t, locX.OnHand.Equal(qty("98")))
	require.True(t, locX.Reserved.IsZero())
}

func TestCompleteRequiresReleasedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, "10")
	_, err := f.svc.Complete(ctx, order.ID, qty("10"))
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	_, err = f.svc.Complete(ctx, order.ID, qty("0"))
	require.True(t, apperror.IsCode(err, apperror.CodeNonPositiveQuantity))
}

func TestCancelReleasedOrderFreesHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, "10")
	_, err := f.svc.Release(ctx, order.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, production.OrderCancelled, cancelled.Status)

	locX, err := f.ledger.Service.GetStock(ctx, f.wid, f.compX)
	require.NoError(t, err)
	require.True(t, locX.Reserved.IsZero())
	require.True(t, locX.OnHand.Equal(qty("100")), "nothing consumed")

	outLoc, err := f.ledger.Service.GetStock(ctx, f.wid, f.output)
	require.NoError(t, err)
	require.True(t, outLoc.Ordered.IsZero())

	_, err = f.svc.Complete(ctx, order.ID, qty("5"))
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule), "cancelled order cannot complete")
}

func TestRequiredQuantitiesByBOMID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lines, err := f.svc.RequiredQuantities(ctx, f.bom.ID, qty("25"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	reqX := lineFor(t, lines, f.compX)
	reqY := lineFor(t, lines, f.compY)
	require.True(t, reqX.Quantity.Equal(qty("10")), "4 * 25/10 = 10, got %s", reqX.Quantity)
	require.True(t, reqY.Quantity.Equal(qty("5")), "2 * 25/10 = 5, got %s", reqY.Quantity)

	_, err = f.svc.RequiredQuantities(ctx, f.bom.ID, qty("0"))
	require.True(t, apperror.IsCode(err, apperror.CodeNonPositiveQuantity))

	_, err = f.svc.RequiredQuantities(ctx, id.New(), qty("5"))
	require.True(t, apperror.IsNotFound(err))
}

func TestCheckAvailabilityReportsShortages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 100 on hand of each component covers a run of 25.
	shortages, err := f.svc.CheckAvailability(ctx, f.bom.ID, f.wid, qty("25"))
	require.NoError(t, err)
	require.Empty(t, shortages)

	// A run of 300 needs 120 X and 60 Y; only X falls short.
	shortages, err = f.svc.CheckAvailability(ctx, f.bom.ID, f.wid, qty("300"))
	require.NoError(t, err)
	require.Len(t, shortages, 1)
	require.Equal(t, f.compX, shortages[0].ComponentID)
	require.True(t, shortages[0].Required.Equal(qty("120")))
	require.True(t, shortages[0].Available.Equal(qty("100")))
	require.True(t, shortages[0].Deficit.Equal(qty("20")))
}

func TestCheckAvailabilityCountsReservedAsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: f.wid, ProductID: f.compY, Quantity: qty("95"),
		ReferenceType: "sales_order", ReferenceID: "SO-1",
	})
	require.NoError(t, err)

	// A run of 30 needs 6 Y but only 5 remain unreserved.
	shortages, err := f.svc.CheckAvailability(ctx, f.bom.ID, f.wid, qty("30"))
	require.NoError(t, err)
	require.Len(t, shortages, 1)
	require.Equal(t, f.compY, shortages[0].ComponentID)
	require.True(t, shortages[0].Deficit.Equal(qty("1")))
}

func TestCheckAvailabilityTreatsMissingLocationAsZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.ledger.Warehouses.Add(false)
	shortages, err := f.svc.CheckAvailability(ctx, f.bom.ID, empty, qty("10"))
	require.NoError(t, err)
	require.Len(t, shortages, 2)
	require.True(t, shortages[0].Available.IsZero())
	require.True(t, shortages[0].Deficit.Equal(shortages[0].Required))
}

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/ledger/ledgertest"
	"kardex/internal/domain/movement"
)

func qty(s string) types.Quantity { return types.MustQuantity(s) }
func money(s string) types.Money  { return types.MustMoney(s) }

func moneyp(s string) *types.Money {
	m := money(s)
	return &m
}

func receive(t *testing.T, f *ledgertest.Fixture, wid, pid id.ID, quantity, cost string) ledger.Entry {
	t.Helper()
	entry, err := f.Service.Post(context.Background(), ledger.PostCommand{
		TypeCode:      movement.TypePurchaseReceipt,
		ProductID:     pid,
		WarehouseID:   wid,
		Quantity:      qty(quantity),
		UnitCost:      moneyp(cost),
		ReferenceType: "purchase_order",
		ReferenceID:   "PO-1",
	})
	require.NoError(t, err)
	return entry
}

func TestPostIncomingSetsAverageCost(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()

	receive(t, f, wid, pid, "100", "2.00")

	loc, err := f.Service.GetStock(context.Background(), wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("100")))
	require.True(t, loc.AvgCost.Equal(money("2.00")), "avg cost %s", loc.AvgCost)
}

func TestPostIncomingRecomputesWeightedAverage(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()

	receive(t, f, wid, pid, "100", "2.00")
	receive(t, f, wid, pid, "50", "5.00")

	loc, err := f.Service.GetStock(context.Background(), wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("150")))
	// (100*2 + 50*5) / 150 = 3.00
	require.True(t, loc.AvgCost.Equal(money("3.00")), "avg cost %s", loc.AvgCost)
}

func TestReserveBeyondAvailableFails(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	receive(t, f, wid, pid, "50", "5.00")

	_, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("120"),
		ReferenceType: "sales_order", ReferenceID: "SO-1",
	})
	require.NoError(t, err)

	_, err = f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("40"),
		ReferenceType: "sales_order", ReferenceID: "SO-2",
	})
	require.Error(t, err)
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailableStock))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.Reserved.Equal(qty("120")))
	require.True(t, loc.Available().Equal(qty("30")))
}

func TestOutgoingBeyondOnHandFailsWithoutWrite(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	before := len(f.Entries.Entries)

	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode:      movement.TypeSalesShipment,
		ProductID:     pid,
		WarehouseID:   wid,
		Quantity:      qty("150"),
		ReferenceType: "sales_order",
		ReferenceID:   "SO-1",
	})
	require.Error(t, err)
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	requested, err2 := types.NewQuantityFromString(appErr.Details["requested"].(string))
	require.NoError(t, err2)
	available, err2 := types.NewQuantityFromString(appErr.Details["available"].(string))
	require.NoError(t, err2)
	require.True(t, requested.Equal(qty("150")))
	require.True(t, available.Equal(qty("100")))

	require.Len(t, f.Entries.Entries, before, "no journal entry on rejected posting")
	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("100")))
}

func TestOutgoingAllowedWhenWarehousePermitsNegative(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(true)
	pid := f.Products.Add()
	ctx := context.Background()

	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode:    movement.TypeScrap,
		ProductID:   pid,
		WarehouseID: wid,
		Quantity:    qty("5"),
	})
	require.NoError(t, err)

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("-5")))
}

func TestTransferMovesQuantityAndCost(t *testing.T) {
	f := ledgertest.NewFixture()
	src := f.Warehouses.Add(false)
	dst := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, src, pid, "100", "2.00")
	receive(t, f, src, pid, "50", "5.00")

	out, in, err := f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: src,
		ToWarehouseID:   dst,
		Quantity:        qty("30"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-1",
	})
	require.NoError(t, err)
	require.Equal(t, movement.TypeTransferOut, out.TypeCode)
	require.Equal(t, movement.TypeTransferIn, in.TypeCode)
	require.Equal(t, out.ReferenceID, in.ReferenceID)
	require.True(t, out.Quantity.Equal(in.Quantity))
	require.True(t, out.UnitCost.Equal(money("3.00")))

	srcLoc, err := f.Service.GetStock(ctx, src, pid)
	require.NoError(t, err)
	dstLoc, err := f.Service.GetStock(ctx, dst, pid)
	require.NoError(t, err)
	require.True(t, srcLoc.OnHand.Equal(qty("120")))
	require.True(t, dstLoc.OnHand.Equal(qty("30")))
	require.True(t, dstLoc.AvgCost.Equal(money("3.00")))
}

func TestTransferHonorsExplicitUnitCost(t *testing.T) {
	f := ledgertest.NewFixture()
	src := f.Warehouses.Add(false)
	dst := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, src, pid, "10", "2.00")

	out, in, err := f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: src,
		ToWarehouseID:   dst,
		Quantity:        qty("4"),
		UnitCost:        moneyp("5.00"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-7",
	})
	require.NoError(t, err)
	require.True(t, out.UnitCost.Equal(money("2.00")), "goods leave at average cost")
	require.True(t, in.UnitCost.Equal(money("5.00")))

	dstLoc, err := f.Service.GetStock(ctx, dst, pid)
	require.NoError(t, err)
	require.True(t, dstLoc.AvgCost.Equal(money("5.00")))

	srcLoc, err := f.Service.GetStock(ctx, src, pid)
	require.NoError(t, err)
	require.True(t, srcLoc.AvgCost.Equal(money("2.00")), "source average untouched")

	_, _, err = f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: src,
		ToWarehouseID:   dst,
		Quantity:        qty("1"),
		UnitCost:        moneyp("-1.00"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-8",
	})
	require.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestTransferFailsAtomically(t *testing.T) {
	f := ledgertest.NewFixture()
	src := f.Warehouses.Add(false)
	dst := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, src, pid, "10", "1.00")

	_, _, err := f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: src,
		ToWarehouseID:   dst,
		Quantity:        qty("25"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-2",
	})
	require.Error(t, err)
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Neither leg made it into the journal.
	for _, e := range f.Entries.Entries {
		require.NotEqual(t, "TR-2", e.ReferenceID)
	}
	dstLoc, err := f.Service.GetStock(ctx, dst, pid)
	require.NoError(t, err)
	require.True(t, dstLoc.OnHand.IsZero())
}

func TestTransferRejectsSameWarehouse(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()

	_, _, err := f.Service.Transfer(context.Background(), ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: wid,
		ToWarehouseID:   wid,
		Quantity:        qty("1"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-3",
	})
	require.Error(t, err)
	require.True(t, apperror.IsCode(err, apperror.CodeSameWarehouseTransfer))
}

func TestPostValidation(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.Service.Post(ctx, ledger.PostCommand{
			TypeCode: movement.TypePurchaseReceipt, ProductID: pid, WarehouseID: wid,
			Quantity: qty("0"), ReferenceType: "purchase_order", ReferenceID: "PO-9",
		})
		require.True(t, apperror.IsCode(err, apperror.CodeNonPositiveQuantity))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := f.Service.Post(ctx, ledger.PostCommand{
			TypeCode: "NO_SUCH_TYPE", ProductID: pid, WarehouseID: wid, Quantity: qty("1"),
		})
		require.True(t, apperror.IsCode(err, apperror.CodeUnknownMovementType))
	})

	t.Run("missing reference", func(t *testing.T) {
		_, err := f.Service.Post(ctx, ledger.PostCommand{
			TypeCode: movement.TypePurchaseReceipt, ProductID: pid, WarehouseID: wid,
			Quantity: qty("1"), UnitCost: moneyp("1.00"),
		})
		require.True(t, apperror.IsCode(err, apperror.CodeMissingReference))
	})

	t.Run("transfer type posted directly", func(t *testing.T) {
		_, err := f.Service.Post(ctx, ledger.PostCommand{
			TypeCode: movement.TypeTransferOut, ProductID: pid, WarehouseID: wid,
			Quantity: qty("1"), ReferenceType: "transfer_order", ReferenceID: "TR-9",
		})
		require.True(t, apperror.IsCode(err, apperror.CodeInvalidMovementDirection))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.Service.Post(ctx, ledger.PostCommand{
			TypeCode: movement.TypeAdjustmentIn, ProductID: id.New(), WarehouseID: wid,
			Quantity: qty("1"),
		})
		require.True(t, apperror.IsNotFound(err))
	})
}

func TestShipmentConsumesReservation(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")

	res, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("60"),
		ReferenceType: "sales_order", ReferenceID: "SO-10",
	})
	require.NoError(t, err)

	// Unreserved stock is 40; shipping 50 without the reservation fails.
	_, err = f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("50"), ReferenceType: "sales_order", ReferenceID: "SO-10",
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Against the reservation it succeeds.
	entry, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("50"), ReferenceType: "sales_order", ReferenceID: "SO-10",
		ReservationID: &res.ID,
	})
	require.NoError(t, err)
	require.True(t, entry.UnitCost.Equal(money("2.00")), "ships at average cost")

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("50")))
	require.True(t, loc.Reserved.Equal(qty("10")))

	got, err := f.Service.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationActive, got.Status)
	require.True(t, got.Quantity.Equal(qty("10")))

	// Consuming more than remains held is an over-release.
	_, err = f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("20"), ReferenceType: "sales_order", ReferenceID: "SO-10",
		ReservationID: &res.ID,
	})
	require.True(t, apperror.IsCode(err, apperror.CodeOverRelease))
}

func TestReleaseReservation(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	res, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("30"),
		ReferenceType: "sales_order", ReferenceID: "SO-11",
	})
	require.NoError(t, err)

	_, err = f.Service.Release(ctx, res.ID, qty("40"))
	require.True(t, apperror.IsCode(err, apperror.CodeOverRelease))

	got, err := f.Service.Release(ctx, res.ID, qty("30"))
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationReleased, got.Status)

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.Reserved.IsZero())

	_, err = f.Service.Release(ctx, res.ID, qty("1"))
	require.Error(t, err, "released reservation cannot be released again")
}

func TestReversalRestoresAggregate(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	shipped, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("40"), ReferenceType: "sales_order", ReferenceID: "SO-12",
	})
	require.NoError(t, err)

	before, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	journalBefore := len(f.Entries.Entries)

	comp, err := f.Service.Reverse(ctx, shipped.ID)
	require.NoError(t, err)
	require.Equal(t, movement.DirectionIn, comp.Direction)
	require.Equal(t, shipped.ID, *comp.ReversalOf)
	require.True(t, comp.UnitCost.Equal(shipped.UnitCost))

	after, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, after.OnHand.Equal(before.OnHand.Add(qty("40"))))
	require.True(t, after.AvgCost.Equal(before.AvgCost))
	require.Len(t, f.Entries.Entries, journalBefore+1)

	// The original can only be reversed once, and reversals never reverse.
	_, err = f.Service.Reverse(ctx, shipped.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeConflict))
	_, err = f.Service.Reverse(ctx, comp.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))
}

func TestPhysicalCountPostsSignedAdjustments(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	short := f.Products.Add()
	over := f.Products.Add()
	exact := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, short, "100", "2.00")
	receive(t, f, wid, over, "50", "4.00")
	receive(t, f, wid, exact, "20", "1.00")

	result, err := f.Service.PostCount(ctx, ledger.CountCommand{
		WarehouseID: wid,
		ReferenceID: "CNT-1",
		Lines: []ledger.CountLine{
			{ProductID: short, CountedQty: qty("95")},
			{ProductID: over, CountedQty: qty("52")},
			{ProductID: exact, CountedQty: qty("20")},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	require.Equal(t, 1, result.Unchanged)
	require.True(t, result.Shortage.Equal(qty("5")))
	require.True(t, result.Surplus.Equal(qty("2")))

	byProduct := map[id.ID]ledger.Entry{}
	for _, e := range result.Entries {
		byProduct[e.ProductID] = e
	}
	require.Equal(t, movement.TypeAdjustmentOut, byProduct[short].TypeCode)
	require.Equal(t, movement.TypeAdjustmentIn, byProduct[over].TypeCode)
	// Surplus arrives at the book cost, leaving average untouched.
	require.True(t, byProduct[over].UnitCost.Equal(money("4.00")))

	shortLoc, err := f.Service.GetStock(ctx, wid, short)
	require.NoError(t, err)
	require.True(t, shortLoc.OnHand.Equal(qty("95")))
	require.NotNil(t, shortLoc.LastCountAt)

	exactLoc, err := f.Service.GetStock(ctx, wid, exact)
	require.NoError(t, err)
	require.NotNil(t, exactLoc.LastCountAt, "count date recorded even without adjustment")
}

func TestCountBelowReservedTrimsHolds(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	res, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("90"),
		ReferenceType: "sales_order", ReferenceID: "SO-77",
	})
	require.NoError(t, err)

	result, err := f.Service.PostCount(ctx, ledger.CountCommand{
		WarehouseID: wid,
		ReferenceID: "CNT-9",
		Lines:       []ledger.CountLine{{ProductID: pid, CountedQty: qty("5")}},
	})
	require.NoError(t, err)
	require.True(t, result.Shortage.Equal(qty("95")))
	require.True(t, result.TrimmedHolds.Equal(qty("85")))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("5")))
	require.True(t, loc.Reserved.LessThanOrEqual(loc.OnHand), "holds cannot promise more than was counted")
	require.False(t, loc.Available().IsNegative())

	hold, err := f.Service.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, hold.Quantity.Equal(qty("5")))
	require.Equal(t, ledger.ReservationActive, hold.Status)
}

func TestCountTrimsNewestHoldsFirst(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	older, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("60"),
		ReferenceType: "sales_order", ReferenceID: "SO-1",
	})
	require.NoError(t, err)
	newer, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("30"),
		ReferenceType: "sales_order", ReferenceID: "SO-2",
	})
	require.NoError(t, err)

	// Separate the creation instants so the trim order is unambiguous.
	backdated, err := f.Reservations.GetByID(ctx, older.ID)
	require.NoError(t, err)
	backdated.CreatedAt = backdated.CreatedAt.Add(-time.Minute)
	require.NoError(t, f.Reservations.Update(ctx, &backdated))

	result, err := f.Service.PostCount(ctx, ledger.CountCommand{
		WarehouseID: wid,
		ReferenceID: "CNT-10",
		Lines:       []ledger.CountLine{{ProductID: pid, CountedQty: qty("50")}},
	})
	require.NoError(t, err)
	require.True(t, result.TrimmedHolds.Equal(qty("40")))

	gone, err := f.Service.GetReservation(ctx, newer.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationReleased, gone.Status)

	kept, err := f.Service.GetReservation(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationActive, kept.Status)
	require.True(t, kept.Quantity.Equal(qty("50")), "oldest promise survives the longest")

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.Reserved.Equal(qty("50")))
}

func TestBalanceAtDateReplaysJournal(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	receive(t, f, wid, pid, "100", "4.00")
	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("50"), ReferenceType: "sales_order", ReferenceID: "SO-5",
	})
	require.NoError(t, err)

	// Spread the postings over known instants.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range f.Entries.Entries {
		f.Entries.Entries[i].PostedAt = base.Add(time.Duration(i) * time.Hour)
	}

	mid, err := f.Service.BalanceAtDate(ctx, wid, pid, base.Add(90*time.Minute))
	require.NoError(t, err)
	require.True(t, mid.OnHand.Equal(qty("200")), "shipment not yet posted at that instant")
	require.True(t, mid.AvgCost.Equal(money("3.00")))

	end, err := f.Service.BalanceAtDate(ctx, wid, pid, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.True(t, end.OnHand.Equal(qty("150")))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, end.OnHand.Equal(loc.OnHand), "replay to now matches the aggregate")
	require.True(t, end.AvgCost.Equal(loc.AvgCost))
}

// lockHookStocks runs a hook once when the next row lock is taken.
type lockHookStocks struct {
	*ledgertest.StockRepo
	hook func()
}

func (s *lockHookStocks) GetForUpdate(ctx context.Context, warehouseID, productID id.ID) (ledger.StockLocation, error) {
	if s.hook != nil {
		h := s.hook
		s.hook = nil
		h()
	}
	return s.StockRepo.GetForUpdate(ctx, warehouseID, productID)
}

func TestReversalRaceReturnsConflict(t *testing.T) {
	f := ledgertest.NewFixture()
	stocks := &lockHookStocks{StockRepo: f.Stocks}
	svc := ledger.NewService(ledgertest.TxManager{}, f.Entries, stocks,
		f.Reservations, f.Registry, f.Warehouses, f.Products)

	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	entry := receive(t, f, wid, pid, "10", "2.00")

	// A competing reversal commits while this one waits on the row
	// lock. The engine must answer CONFLICT, not bubble up a journal
	// uniqueness error.
	stocks.hook = func() {
		origID := entry.ID
		comp := ledger.Entry{
			ID:          id.New(),
			TypeCode:    entry.TypeCode,
			Direction:   movement.DirectionOut,
			ProductID:   entry.ProductID,
			WarehouseID: entry.WarehouseID,
			Quantity:    entry.Quantity,
			UnitCost:    entry.UnitCost,
			ReversalOf:  &origID,
			PostedAt:    time.Now().UTC(),
		}
		require.NoError(t, f.Entries.Insert(ctx, &comp))
	}

	_, err := svc.Reverse(ctx, entry.ID)
	require.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestJournalReplayMatchesAggregate(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	receive(t, f, wid, pid, "50", "5.00")
	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("70"), ReferenceType: "sales_order", ReferenceID: "SO-13",
	})
	require.NoError(t, err)
	receive(t, f, wid, pid, "25", "4.00")

	entries, err := f.Entries.ListByLocation(ctx, wid, pid)
	require.NoError(t, err)
	replayed := ledger.Replay(wid, pid, entries)

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, replayed.OnHand.Equal(loc.OnHand),
		"replayed %s aggregate %s", replayed.OnHand, loc.OnHand)
	require.True(t, replayed.AvgCost.Equal(loc.AvgCost),
		"replayed %s aggregate %s", replayed.AvgCost, loc.AvgCost)
}

func TestRebuildRepairsDriftedAggregate(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	_, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("10"),
		ReferenceType: "sales_order", ReferenceID: "SO-14",
	})
	require.NoError(t, err)

	// Corrupt the materialized row.
	broken, err := f.Stocks.Get(ctx, wid, pid)
	require.NoError(t, err)
	broken.OnHand = qty("999")
	broken.AvgCost = money("9.99")
	require.NoError(t, f.Stocks.Save(ctx, &broken))

	rebuilt, err := f.Service.Rebuild(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, rebuilt.OnHand.Equal(qty("100")))
	require.True(t, rebuilt.AvgCost.Equal(money("2.00")))
	require.True(t, rebuilt.Reserved.Equal(qty("10")), "reserved rebuilt from active holds")
}

func TestTurnoverReport(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("30"), ReferenceType: "sales_order", ReferenceID: "SO-15",
	})
	require.NoError(t, err)

	entries, err := f.Entries.ListByLocation(ctx, wid, pid)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	from := entries[0].PostedAt.Add(-1)
	to := entries[1].PostedAt.Add(1)
	turnover, err := f.Service.GetTurnover(ctx, ledger.TurnoverFilter{
		WarehouseID: &wid, ProductID: &pid, FromDate: from, ToDate: to,
	})
	require.NoError(t, err)
	require.True(t, turnover.Receipt.Equal(qty("100")))
	require.True(t, turnover.Expense.Equal(qty("30")))
	require.True(t, turnover.ClosingBalance.Equal(qty("70")))
}

func TestLowStockUsesReorderPoint(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	f.Stocks.ReorderPoints[pid] = qty("40")
	receive(t, f, wid, pid, "100", "2.00")

	low, err := f.Service.ListLowStock(ctx, &wid)
	require.NoError(t, err)
	require.Empty(t, low)

	_, err = f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeSalesShipment, ProductID: pid, WarehouseID: wid,
		Quantity: qty("70"), ReferenceType: "sales_order", ReferenceID: "SO-16",
	})
	require.NoError(t, err)

	low, err = f.Service.ListLowStock(ctx, &wid)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.True(t, low[0].OnHand.Equal(qty("30")))
	require.True(t, low[0].ReorderPoint.Equal(qty("40")))
}

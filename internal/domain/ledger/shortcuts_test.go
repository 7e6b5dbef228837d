package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/ledger/ledgertest"
	"kardex/internal/domain/movement"
)

func TestDirectionalShortcutsDefaultAndGuardTypes(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	entry, err := f.Service.PostIncoming(ctx, ledger.PostCommand{
		ProductID: pid, WarehouseID: wid,
		Quantity: qty("10"), UnitCost: moneyp("3.00"),
		ReferenceType: "purchase_order", ReferenceID: "PO-7",
	})
	require.NoError(t, err)
	require.Equal(t, movement.TypePurchaseReceipt, entry.TypeCode)

	entry, err = f.Service.PostOutgoing(ctx, ledger.PostCommand{
		ProductID: pid, WarehouseID: wid,
		Quantity:      qty("4"),
		ReferenceType: "sales_order", ReferenceID: "SO-7",
	})
	require.NoError(t, err)
	require.Equal(t, movement.TypeSalesShipment, entry.TypeCode)

	_, err = f.Service.PostIncoming(ctx, ledger.PostCommand{
		TypeCode:  movement.TypeScrap,
		ProductID: pid, WarehouseID: wid, Quantity: qty("1"),
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInvalidMovementDirection))

	_, err = f.Service.PostOutgoing(ctx, ledger.PostCommand{
		TypeCode:  movement.TypePurchaseReceipt,
		ProductID: pid, WarehouseID: wid, Quantity: qty("1"),
		UnitCost:      moneyp("1.00"),
		ReferenceType: "purchase_order", ReferenceID: "PO-8",
	})
	require.True(t, apperror.IsCode(err, apperror.CodeInvalidMovementDirection))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("6")))
}

func TestPostAdjustmentRoutesBySign(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "20", "1.50")

	entry, err := f.Service.PostAdjustment(ctx, wid, pid, qty("5"), "count", "CNT-1")
	require.NoError(t, err)
	require.Equal(t, movement.TypeAdjustmentIn, entry.TypeCode)
	require.True(t, entry.Quantity.Equal(qty("5")))

	entry, err = f.Service.PostAdjustment(ctx, wid, pid, qty("-8"), "count", "CNT-1")
	require.NoError(t, err)
	require.Equal(t, movement.TypeAdjustmentOut, entry.TypeCode)
	require.True(t, entry.Quantity.Equal(qty("8")))

	_, err = f.Service.PostAdjustment(ctx, wid, pid, qty("0"), "count", "CNT-1")
	require.True(t, apperror.IsCode(err, apperror.CodeNonPositiveQuantity))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("17")))
}

func TestShipFillsDefaultsFromReservation(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "100", "2.00")
	res, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("30"),
		ReferenceType: "sales_order", ReferenceID: "SO-20",
	})
	require.NoError(t, err)

	entry, err := f.Service.Ship(ctx, res.ID, ledger.PostCommand{})
	require.NoError(t, err)
	require.Equal(t, movement.TypeSalesShipment, entry.TypeCode)
	require.True(t, entry.Quantity.Equal(qty("30")))
	require.Equal(t, "sales_order", entry.ReferenceType)
	require.Equal(t, "SO-20", entry.ReferenceID)

	got, err := f.Service.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationConsumed, got.Status)

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("70")))
	require.True(t, loc.Reserved.IsZero())

	_, err = f.Service.Ship(ctx, res.ID, ledger.PostCommand{})
	require.Error(t, err, "consumed reservation cannot ship again")
}

func TestShipPartialQuantityKeepsHold(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, wid, pid, "50", "4.00")
	res, err := f.Service.Reserve(ctx, ledger.ReserveCommand{
		WarehouseID: wid, ProductID: pid, Quantity: qty("40"),
		ReferenceType: "sales_order", ReferenceID: "SO-21",
	})
	require.NoError(t, err)

	entry, err := f.Service.Ship(ctx, res.ID, ledger.PostCommand{Quantity: qty("15")})
	require.NoError(t, err)
	require.True(t, entry.Quantity.Equal(qty("15")))

	got, err := f.Service.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.ReservationActive, got.Status)
	require.True(t, got.Quantity.Equal(qty("25")))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.OnHand.Equal(qty("35")))
	require.True(t, loc.Reserved.Equal(qty("25")))
}

func TestWarehouseDirectionFlagsGatePostings(t *testing.T) {
	f := ledgertest.NewFixture()
	receiveOnly := f.Warehouses.AddWithPolicy(ledger.WarehousePolicy{CanReceive: true})
	shipOnly := f.Warehouses.AddWithPolicy(ledger.WarehousePolicy{CanShip: true, AllowNegative: true})
	pid := f.Products.Add()
	ctx := context.Background()

	receive(t, f, receiveOnly, pid, "10", "2.00")

	_, err := f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypeScrap, ProductID: pid, WarehouseID: receiveOnly,
		Quantity: qty("1"),
	})
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	_, err = f.Service.Post(ctx, ledger.PostCommand{
		TypeCode: movement.TypePurchaseReceipt, ProductID: pid, WarehouseID: shipOnly,
		Quantity: qty("1"), UnitCost: moneyp("2.00"),
		ReferenceType: "purchase_order", ReferenceID: "PO-9",
	})
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	// A transfer needs the source to ship and the destination to receive.
	_, _, err = f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: receiveOnly,
		ToWarehouseID:   shipOnly,
		Quantity:        qty("1"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-9",
	})
	require.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	_, _, err = f.Service.Transfer(ctx, ledger.TransferCommand{
		ProductID:       pid,
		FromWarehouseID: shipOnly,
		ToWarehouseID:   receiveOnly,
		Quantity:        qty("1"),
		ReferenceType:   "transfer_order",
		ReferenceID:     "TR-10",
	})
	require.NoError(t, err)
}

func TestIncomingDefaultsToCatalogCostPrice(t *testing.T) {
	f := ledgertest.NewFixture()
	wid := f.Warehouses.Add(false)
	pid := f.Products.Add()
	f.Products.CostPrices[pid] = money("7.50")
	ctx := context.Background()

	entry, err := f.Service.PostIncoming(ctx, ledger.PostCommand{
		ProductID: pid, WarehouseID: wid, Quantity: qty("10"),
		ReferenceType: "purchase_order", ReferenceID: "PO-11",
	})
	require.NoError(t, err)
	require.True(t, entry.UnitCost.Equal(money("7.50")))

	// An explicit cost wins over the catalog default.
	entry, err = f.Service.PostIncoming(ctx, ledger.PostCommand{
		ProductID: pid, WarehouseID: wid, Quantity: qty("10"),
		UnitCost:      moneyp("8.50"),
		ReferenceType: "purchase_order", ReferenceID: "PO-12",
	})
	require.NoError(t, err)
	require.True(t, entry.UnitCost.Equal(money("8.50")))

	loc, err := f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.AvgCost.Equal(money("8.00")))

	// An explicit zero is a free receipt, not an unset cost.
	entry, err = f.Service.PostIncoming(ctx, ledger.PostCommand{
		ProductID: pid, WarehouseID: wid, Quantity: qty("20"),
		UnitCost:      moneyp("0"),
		ReferenceType: "purchase_order", ReferenceID: "PO-13",
	})
	require.NoError(t, err)
	require.True(t, entry.UnitCost.IsZero())

	loc, err = f.Service.GetStock(ctx, wid, pid)
	require.NoError(t, err)
	require.True(t, loc.AvgCost.Equal(money("4.00")), "free stock dilutes the average")
}

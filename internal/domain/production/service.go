package production

import (
	"context"
	"fmt"
	"strings"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/movement"
	"kardex/pkg/logger"
)

// ReferenceType links ledger entries and reservations to production orders.
const ReferenceType = "production_order"

// Service orchestrates production orders on top of the posting engine.
type Service struct {
	txm    tx.Manager
	ledger *ledger.Service
	boms   BOMRepository
	orders OrderRepository
}

// NewService creates a production service.
func NewService(txm tx.Manager, ledgerSvc *ledger.Service, boms BOMRepository, orders OrderRepository) *Service {
	return &Service{
		txm:    txm,
		ledger: ledgerSvc,
		boms:   boms,
		orders: orders,
	}
}

// --- Bills of materials ---

// GetBOM returns a bill of materials by id.
func (s *Service) GetBOM(ctx context.Context, bomID id.ID) (BOM, error) {
	return s.boms.GetByID(ctx, bomID)
}

// ListBOMs returns all bills of materials.
func (s *Service) ListBOMs(ctx context.Context) ([]BOM, error) {
	return s.boms.List(ctx)
}

// CreateBOM validates and inserts a bill of materials.
func (s *Service) CreateBOM(ctx context.Context, b *BOM) error {
	if err := b.Validate(ctx); err != nil {
		return err
	}

	if _, err := s.boms.GetByCode(ctx, b.Code); err == nil {
		return apperror.NewDuplicate("bill of materials", "code", b.Code)
	} else if !apperror.IsNotFound(err) {
		return fmt.Errorf("check code uniqueness: %w", err)
	}

	if err := s.boms.Create(ctx, b); err != nil {
		return fmt.Errorf("create bill of materials: %w", err)
	}

	logger.Info(ctx, "bill of materials created",
		"bom_id", b.ID, "code", b.Code, "product_id", b.ProductID)
	return nil
}

// UpdateBOM validates and saves changes to a bill of materials.
func (s *Service) UpdateBOM(ctx context.Context, b *BOM) error {
	if err := b.Validate(ctx); err != nil {
		return err
	}
	if err := s.boms.Update(ctx, b); err != nil {
		return fmt.Errorf("update bill of materials: %w", err)
	}
	logger.Info(ctx, "bill of materials updated", "bom_id", b.ID)
	return nil
}

// RequiredQuantities scales the BOM lines to the requested output.
func (s *Service) RequiredQuantities(ctx context.Context, bomID id.ID, outputQty types.Quantity) ([]BOMLine, error) {
	if !outputQty.IsPositive() {
		return nil, apperror.NewNonPositiveQuantity(outputQty)
	}
	bom, err := s.boms.GetByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	return bom.Requirements(outputQty), nil
}

// CheckAvailability compares each component requirement against available
// stock at the warehouse and returns every shortfall. An empty result
// means the order can be covered.
func (s *Service) CheckAvailability(ctx context.Context, bomID, warehouseID id.ID, outputQty types.Quantity) ([]Shortage, error) {
	reqs, err := s.RequiredQuantities(ctx, bomID, outputQty)
	if err != nil {
		return nil, err
	}

	shortages := make([]Shortage, 0)
	for _, req := range reqs {
		loc, err := s.ledger.GetStock(ctx, warehouseID, req.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("read component stock: %w", err)
		}

		if available := loc.Available(); req.Quantity.GreaterThan(available) {
			shortages = append(shortages, Shortage{
				ComponentID: req.ComponentID,
				Required:    req.Quantity,
				Available:   available,
				Deficit:     types.RoundQuantity(req.Quantity.Sub(available)),
			})
		}
	}
	return shortages, nil
}

// --- Orders ---

// GetOrder returns a production order by id.
func (s *Service) GetOrder(ctx context.Context, orderID id.ID) (Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrders returns orders matching the filter.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	return s.orders.List(ctx, filter)
}

// CreateOrderCommand describes a new production order.
type CreateOrderCommand struct {
	BOMID       id.ID
	WarehouseID id.ID
	PlannedQty  types.Quantity
	Number      string
}

// CreateOrder creates a draft order for a BOM.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	bom, err := s.boms.GetByID(ctx, cmd.BOMID)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		Number:      cmd.Number,
		BOMID:       bom.ID,
		ProductID:   bom.ProductID,
		WarehouseID: cmd.WarehouseID,
		PlannedQty:  types.RoundQuantity(cmd.PlannedQty),
		ActualQty:   types.Zero(),
		Status:      OrderDraft,
	}
	order.BaseDocument = entity.NewBaseDocument()
	if order.Number == "" {
		order.Number = "PO-" + strings.ToUpper(order.ID.String()[:8])
	}

	if err := order.Validate(ctx); err != nil {
		return Order{}, err
	}

	if err := s.orders.Create(ctx, &order); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	logger.Info(ctx, "production order created",
		"order_id", order.ID, "number", order.Number, "planned_qty", order.PlannedQty.String())
	return order, nil
}

// Release moves a draft order to released: component stock is reserved
// for the planned quantity and the output product's expected quantity
// grows. All or nothing in one transaction.
func (s *Service) Release(ctx context.Context, orderID id.ID) (Order, error) {
	var order Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != OrderDraft {
			return invalidTransition(order, OrderReleased)
		}

		bom, err := s.boms.GetByID(ctx, order.BOMID)
		if err != nil {
			return err
		}

		for _, req := range bom.Requirements(order.PlannedQty) {
			if _, err := s.ledger.Reserve(ctx, ledger.ReserveCommand{
				WarehouseID:   order.WarehouseID,
				ProductID:     req.ComponentID,
				Quantity:      req.Quantity,
				ReferenceType: ReferenceType,
				ReferenceID:   order.ID.String(),
			}); err != nil {
				return err
			}
		}

		if err := s.ledger.AdjustOrdered(ctx, order.WarehouseID, order.ProductID, order.PlannedQty); err != nil {
			return err
		}

		order.Status = OrderReleased
		order.Touch()
		return s.orders.Update(ctx, &order)
	})
	if err != nil {
		return Order{}, err
	}

	logger.Info(ctx, "production order released",
		"order_id", order.ID, "number", order.Number)
	return order, nil
}

// CompleteResult reports what completion posted.
type CompleteResult struct {
	Order       Order          `json:"order"`
	Consumption []ledger.Entry `json:"consumption"`
	Output      ledger.Entry   `json:"output"`
}

// Complete finishes a released order with the actually produced quantity.
// Component consumption scales by actual over batch size; the finished
// product arrives at the summed component cost divided by output.
func (s *Service) Complete(ctx context.Context, orderID id.ID, actualQty types.Quantity) (CompleteResult, error) {
	if !actualQty.IsPositive() {
		return CompleteResult{}, apperror.NewNonPositiveQuantity(actualQty)
	}

	var result CompleteResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != OrderReleased {
			return invalidTransition(order, OrderCompleted)
		}

		bom, err := s.boms.GetByID(ctx, order.BOMID)
		if err != nil {
			return err
		}

		// Holds were sized for the planned quantity; free them so the
		// consumption below draws from available stock at actual size.
		if err := s.releaseOrderHolds(ctx, order); err != nil {
			return err
		}

		totalCost := types.Zero()
		for _, req := range bom.Requirements(actualQty) {
			entry, err := s.ledger.Post(ctx, ledger.PostCommand{
				TypeCode:      movement.TypeProductionOut,
				ProductID:     req.ComponentID,
				WarehouseID:   order.WarehouseID,
				Quantity:      req.Quantity,
				ReferenceType: ReferenceType,
				ReferenceID:   order.ID.String(),
			})
			if err != nil {
				return err
			}
			result.Consumption = append(result.Consumption, entry)
			totalCost = totalCost.Add(entry.TotalCost())
		}

		outputCost := types.RoundMoney(totalCost.Div(actualQty))
		result.Output, err = s.ledger.Post(ctx, ledger.PostCommand{
			TypeCode:      movement.TypeProductionIn,
			ProductID:     order.ProductID,
			WarehouseID:   order.WarehouseID,
			Quantity:      actualQty,
			UnitCost:      &outputCost,
			ReferenceType: ReferenceType,
			ReferenceID:   order.ID.String(),
		})
		if err != nil {
			return err
		}

		if err := s.ledger.AdjustOrdered(ctx, order.WarehouseID, order.ProductID, order.PlannedQty.Neg()); err != nil {
			return err
		}

		order.ActualQty = types.RoundQuantity(actualQty)
		order.Status = OrderCompleted
		order.Touch()
		if err := s.orders.Update(ctx, &order); err != nil {
			return err
		}
		result.Order = order
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	logger.Info(ctx, "production order completed",
		"order_id", result.Order.ID,
		"number", result.Order.Number,
		"actual_qty", result.Order.ActualQty.String(),
		"output_cost", result.Output.UnitCost.String(),
	)
	return result, nil
}

// Cancel aborts a draft or released order. Released orders give their
// holds back and shrink the expected output quantity.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) (Order, error) {
	var order Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case OrderDraft:
		case OrderReleased:
			if err := s.releaseOrderHolds(ctx, order); err != nil {
				return err
			}
			if err := s.ledger.AdjustOrdered(ctx, order.WarehouseID, order.ProductID, order.PlannedQty.Neg()); err != nil {
				return err
			}
		default:
			return invalidTransition(order, OrderCancelled)
		}

		order.Status = OrderCancelled
		order.Touch()
		return s.orders.Update(ctx, &order)
	})
	if err != nil {
		return Order{}, err
	}

	logger.Info(ctx, "production order cancelled",
		"order_id", order.ID, "number", order.Number)
	return order, nil
}

// releaseOrderHolds frees any still-active reservations of the order.
func (s *Service) releaseOrderHolds(ctx context.Context, order Order) error {
	holds, err := s.ledger.ListReservationsByReference(ctx, ReferenceType, order.ID.String())
	if err != nil {
		return fmt.Errorf("list order reservations: %w", err)
	}
	for _, hold := range holds {
		if hold.Status != ledger.ReservationActive {
			continue
		}
		if _, err := s.ledger.Release(ctx, hold.ID, hold.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func invalidTransition(order Order, target OrderStatus) error {
	return apperror.NewBusinessRule(apperror.CodeBusinessRule,
		fmt.Sprintf("order cannot move from %s to %s", order.Status, target)).
		WithDetail("order_id", order.ID).
		WithDetail("status", string(order.Status))
}

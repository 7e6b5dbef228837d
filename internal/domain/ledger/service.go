package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/appcontext"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/internal/domain/movement"
	"kardex/pkg/logger"
)

// WarehousePolicy is the slice of warehouse data the ledger needs.
type WarehousePolicy struct {
	ID            id.ID
	AllowNegative bool
	CanReceive    bool
	CanShip       bool
}

// WarehouseSource resolves warehouse posting policy.
// Implemented by the warehouse catalog service.
type WarehouseSource interface {
	Policy(ctx context.Context, warehouseID id.ID) (WarehousePolicy, error)
}

// checkPolicy gates a posting direction by warehouse configuration.
func checkPolicy(policy WarehousePolicy, direction movement.Direction) error {
	if direction == movement.DirectionIn && !policy.CanReceive {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "warehouse does not receive goods").
			WithDetail("warehouse_id", policy.ID)
	}
	if direction == movement.DirectionOut && !policy.CanShip {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "warehouse does not ship goods").
			WithDetail("warehouse_id", policy.ID)
	}
	return nil
}

// ProductSource resolves the product data the ledger needs.
// Implemented by the product catalog service.
type ProductSource interface {
	Exists(ctx context.Context, productID id.ID) (bool, error)

	// CostPrice is the catalog default for incoming postings that
	// carry no explicit unit cost.
	CostPrice(ctx context.Context, productID id.ID) (types.Money, error)
}

// Service is the posting engine. Every state change to stock goes through
// it: a journal entry is appended and the locked aggregate row is updated
// in the same transaction.
type Service struct {
	txm          tx.Manager
	entries      EntryRepository
	stocks       StockRepository
	reservations ReservationRepository
	registry     *movement.Registry
	warehouses   WarehouseSource
	products     ProductSource
}

// NewService creates the posting engine.
func NewService(
	txm tx.Manager,
	entries EntryRepository,
	stocks StockRepository,
	reservations ReservationRepository,
	registry *movement.Registry,
	warehouses WarehouseSource,
	products ProductSource,
) *Service {
	return &Service{
		txm:          txm,
		entries:      entries,
		stocks:       stocks,
		reservations: reservations,
		registry:     registry,
		warehouses:   warehouses,
		products:     products,
	}
}

// PostCommand describes one movement to post.
type PostCommand struct {
	TypeCode    string
	ProductID   id.ID
	WarehouseID id.ID
	Quantity    types.Quantity

	// UnitCost prices an incoming cost-affecting movement. Nil falls
	// back to the product's catalog cost price; an explicit zero posts
	// free of charge. Ignored for outgoing types; they always post at
	// average cost.
	UnitCost *types.Money

	ReferenceType string
	ReferenceID   string

	// ReservationID consumes a reservation together with an outgoing
	// movement (shipment against an order).
	ReservationID *id.ID
}

// Post validates and posts a single movement.
func (s *Service) Post(ctx context.Context, cmd PostCommand) (Entry, error) {
	mt, err := s.validateCommand(ctx, cmd)
	if err != nil {
		return Entry{}, err
	}
	if mt.Code == movement.TypeTransferIn || mt.Code == movement.TypeTransferOut {
		return Entry{}, apperror.NewInvalidMovementDirection(mt.Code,
			"transfer movements must be posted as paired legs")
	}

	if mt.Direction == movement.DirectionIn && mt.AffectsCost && cmd.UnitCost == nil {
		price, err := s.products.CostPrice(ctx, cmd.ProductID)
		if err != nil {
			return Entry{}, fmt.Errorf("read cost price: %w", err)
		}
		cmd.UnitCost = &price
	}

	var entry Entry
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.warehouses.Policy(ctx, cmd.WarehouseID)
		if err != nil {
			return err
		}

		loc, err := s.stocks.GetForUpdate(ctx, cmd.WarehouseID, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("lock stock location: %w", err)
		}

		entry, err = s.postLocked(ctx, &loc, mt, cmd, policy)
		if err != nil {
			return err
		}

		if err := s.stocks.Save(ctx, &loc); err != nil {
			return fmt.Errorf("save stock location: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	logger.Info(ctx, "movement posted",
		"entry_id", entry.ID,
		"type", entry.TypeCode,
		"product_id", entry.ProductID,
		"warehouse_id", entry.WarehouseID,
		"quantity", entry.Quantity.String(),
	)
	return entry, nil
}

// validateCommand runs the checks that need no locks.
func (s *Service) validateCommand(ctx context.Context, cmd PostCommand) (movement.Type, error) {
	if !cmd.Quantity.IsPositive() {
		return movement.Type{}, apperror.NewNonPositiveQuantity(cmd.Quantity)
	}

	mt, err := s.registry.Resolve(ctx, cmd.TypeCode)
	if err != nil {
		return movement.Type{}, err
	}

	if mt.RequiresReference && (cmd.ReferenceType == "" || cmd.ReferenceID == "") {
		return movement.Type{}, apperror.NewMissingReference(mt.Code)
	}

	if cmd.UnitCost != nil && cmd.UnitCost.IsNegative() {
		return movement.Type{}, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unit_cost", cmd.UnitCost.String())
	}

	ok, err := s.products.Exists(ctx, cmd.ProductID)
	if err != nil {
		return movement.Type{}, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return movement.Type{}, apperror.NewNotFound("product", cmd.ProductID)
	}

	return mt, nil
}

// postLocked appends one entry and applies it to the already locked
// aggregate. Callers own the transaction and the final Save.
func (s *Service) postLocked(ctx context.Context, loc *StockLocation, mt movement.Type, cmd PostCommand, policy WarehousePolicy) (Entry, error) {
	if err := checkPolicy(policy, mt.Direction); err != nil {
		return Entry{}, err
	}

	unitCost := types.Zero()
	if cmd.UnitCost != nil {
		unitCost = *cmd.UnitCost
	}
	affectsCost := false

	switch mt.Direction {
	case movement.DirectionOut:
		if err := s.checkOutgoing(ctx, loc, cmd, policy); err != nil {
			return Entry{}, err
		}
		unitCost = loc.AvgCost
	case movement.DirectionIn:
		if mt.AffectsCost {
			affectsCost = true
		} else if cmd.UnitCost == nil {
			unitCost = loc.AvgCost
		}
	}

	entry := Entry{
		ID:            id.New(),
		TypeCode:      mt.Code,
		Direction:     mt.Direction,
		ProductID:     cmd.ProductID,
		WarehouseID:   cmd.WarehouseID,
		Quantity:      types.RoundQuantity(cmd.Quantity),
		UnitCost:      types.RoundMoney(unitCost),
		AffectsCost:   affectsCost,
		ReferenceType: cmd.ReferenceType,
		ReferenceID:   cmd.ReferenceID,
		PostedAt:      time.Now().UTC(),
		PostedBy:      appcontext.ActorID(ctx),
	}

	if err := s.entries.Insert(ctx, &entry); err != nil {
		return Entry{}, fmt.Errorf("append journal entry: %w", err)
	}

	Apply(loc, entry)
	loc.UpdatedAt = entry.PostedAt
	return entry, nil
}

// checkOutgoing enforces stock sufficiency and reservation consumption.
func (s *Service) checkOutgoing(ctx context.Context, loc *StockLocation, cmd PostCommand, policy WarehousePolicy) error {
	if cmd.ReservationID != nil {
		res, err := s.reservations.GetByID(ctx, *cmd.ReservationID)
		if err != nil {
			return err
		}
		if res.Status != ReservationActive {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "reservation is not active").
				WithDetail("reservation_id", res.ID).
				WithDetail("status", string(res.Status))
		}
		if res.WarehouseID != cmd.WarehouseID || res.ProductID != cmd.ProductID {
			return apperror.NewValidation("reservation does not match movement location").
				WithDetail("reservation_id", res.ID)
		}
		if cmd.Quantity.GreaterThan(res.Quantity) {
			return apperror.NewOverRelease(
				cmd.ProductID.String(), cmd.WarehouseID.String(),
				cmd.Quantity, res.Quantity)
		}
		if !policy.AllowNegative && cmd.Quantity.GreaterThan(loc.OnHand) {
			return apperror.NewInsufficientStock(
				cmd.ProductID.String(), cmd.WarehouseID.String(),
				cmd.Quantity, loc.OnHand)
		}

		res.Quantity = res.Quantity.Sub(cmd.Quantity)
		res.UpdatedAt = time.Now().UTC()
		if res.Quantity.IsZero() {
			res.Status = ReservationConsumed
		}
		if err := s.reservations.Update(ctx, &res); err != nil {
			return fmt.Errorf("consume reservation: %w", err)
		}
		loc.Reserved = loc.Reserved.Sub(cmd.Quantity)
		return nil
	}

	// Without a reservation the movement may only take unreserved stock.
	if !policy.AllowNegative && cmd.Quantity.GreaterThan(loc.Available()) {
		return apperror.NewInsufficientStock(
			cmd.ProductID.String(), cmd.WarehouseID.String(),
			cmd.Quantity, loc.Available())
	}
	return nil
}

// Apply folds one journal entry into the aggregate. It is the single
// place the weighted-average formula lives; posting and replay share it.
func Apply(loc *StockLocation, e Entry) {
	if e.Direction == movement.DirectionIn {
		newOnHand := loc.OnHand.Add(e.Quantity)
		if e.AffectsCost {
			if loc.OnHand.Sign() <= 0 {
				loc.AvgCost = types.RoundMoney(e.UnitCost)
			} else {
				total := loc.OnHand.Mul(loc.AvgCost).Add(e.Quantity.Mul(e.UnitCost))
				loc.AvgCost = types.RoundMoney(total.Div(newOnHand))
			}
		}
		loc.OnHand = types.RoundQuantity(newOnHand)
		return
	}
	loc.OnHand = types.RoundQuantity(loc.OnHand.Sub(e.Quantity))
}

// TransferCommand moves stock between two warehouses atomically.
type TransferCommand struct {
	ProductID       id.ID
	FromWarehouseID id.ID
	ToWarehouseID   id.ID
	Quantity        types.Quantity

	// UnitCost prices the incoming leg; nil carries the source's
	// average cost. The outgoing leg always leaves at average cost.
	UnitCost *types.Money

	ReferenceType string
	ReferenceID   string
}

// Transfer posts the paired TRANSFER_OUT and TRANSFER_IN legs in one
// transaction. The incoming leg carries the source's average cost
// unless the command supplies an explicit unit cost, so by default
// value moves with the goods.
func (s *Service) Transfer(ctx context.Context, cmd TransferCommand) (outEntry, inEntry Entry, err error) {
	if !cmd.Quantity.IsPositive() {
		return Entry{}, Entry{}, apperror.NewNonPositiveQuantity(cmd.Quantity)
	}
	if cmd.FromWarehouseID == cmd.ToWarehouseID {
		return Entry{}, Entry{}, apperror.NewSameWarehouseTransfer(cmd.FromWarehouseID.String())
	}
	if cmd.ReferenceType == "" || cmd.ReferenceID == "" {
		return Entry{}, Entry{}, apperror.NewMissingReference(movement.TypeTransferOut)
	}
	if cmd.UnitCost != nil && cmd.UnitCost.IsNegative() {
		return Entry{}, Entry{}, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unit_cost", cmd.UnitCost.String())
	}

	outType, err := s.registry.Resolve(ctx, movement.TypeTransferOut)
	if err != nil {
		return Entry{}, Entry{}, err
	}
	inType, err := s.registry.Resolve(ctx, movement.TypeTransferIn)
	if err != nil {
		return Entry{}, Entry{}, err
	}

	ok, err := s.products.Exists(ctx, cmd.ProductID)
	if err != nil {
		return Entry{}, Entry{}, fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return Entry{}, Entry{}, apperror.NewNotFound("product", cmd.ProductID)
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		srcPolicy, err := s.warehouses.Policy(ctx, cmd.FromWarehouseID)
		if err != nil {
			return err
		}
		dstPolicy, err := s.warehouses.Policy(ctx, cmd.ToWarehouseID)
		if err != nil {
			return err
		}
		if err := checkPolicy(srcPolicy, movement.DirectionOut); err != nil {
			return err
		}
		if err := checkPolicy(dstPolicy, movement.DirectionIn); err != nil {
			return err
		}

		// Lock both rows in a fixed order to avoid deadlocks between
		// opposite-direction transfers.
		first, second := cmd.FromWarehouseID, cmd.ToWarehouseID
		if strings.Compare(second.String(), first.String()) < 0 {
			first, second = second, first
		}
		locked := make(map[id.ID]*StockLocation, 2)
		for _, wid := range []id.ID{first, second} {
			loc, err := s.stocks.GetForUpdate(ctx, wid, cmd.ProductID)
			if err != nil {
				return fmt.Errorf("lock stock location: %w", err)
			}
			l := loc
			locked[wid] = &l
		}
		src, dst := locked[cmd.FromWarehouseID], locked[cmd.ToWarehouseID]

		if !srcPolicy.AllowNegative && cmd.Quantity.GreaterThan(src.Available()) {
			return apperror.NewInsufficientStock(
				cmd.ProductID.String(), cmd.FromWarehouseID.String(),
				cmd.Quantity, src.Available())
		}

		cost := src.AvgCost
		inCost := cost
		if cmd.UnitCost != nil {
			inCost = *cmd.UnitCost
		}
		now := time.Now().UTC()
		actor := appcontext.ActorID(ctx)

		outEntry = Entry{
			ID:            id.New(),
			TypeCode:      outType.Code,
			Direction:     outType.Direction,
			ProductID:     cmd.ProductID,
			WarehouseID:   cmd.FromWarehouseID,
			Quantity:      types.RoundQuantity(cmd.Quantity),
			UnitCost:      types.RoundMoney(cost),
			ReferenceType: cmd.ReferenceType,
			ReferenceID:   cmd.ReferenceID,
			PostedAt:      now,
			PostedBy:      actor,
		}
		inEntry = Entry{
			ID:            id.New(),
			TypeCode:      inType.Code,
			Direction:     inType.Direction,
			ProductID:     cmd.ProductID,
			WarehouseID:   cmd.ToWarehouseID,
			Quantity:      types.RoundQuantity(cmd.Quantity),
			UnitCost:      types.RoundMoney(inCost),
			AffectsCost:   true,
			ReferenceType: cmd.ReferenceType,
			ReferenceID:   cmd.ReferenceID,
			PostedAt:      now,
			PostedBy:      actor,
		}

		if err := s.entries.InsertBatch(ctx, []*Entry{&outEntry, &inEntry}); err != nil {
			return fmt.Errorf("append transfer legs: %w", err)
		}

		Apply(src, outEntry)
		Apply(dst, inEntry)
		src.UpdatedAt, dst.UpdatedAt = now, now

		if err := s.stocks.Save(ctx, src); err != nil {
			return fmt.Errorf("save source location: %w", err)
		}
		if err := s.stocks.Save(ctx, dst); err != nil {
			return fmt.Errorf("save destination location: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, Entry{}, err
	}

	logger.Info(ctx, "transfer posted",
		"product_id", cmd.ProductID,
		"from", cmd.FromWarehouseID,
		"to", cmd.ToWarehouseID,
		"quantity", cmd.Quantity.String(),
		"reference", cmd.ReferenceID,
	)
	return outEntry, inEntry, nil
}

// Reverse posts a compensating entry for a previously posted movement.
// The original entry stays in the journal untouched.
func (s *Service) Reverse(ctx context.Context, entryID id.ID) (Entry, error) {
	var original, comp Entry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		original, err = s.entries.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		if original.ReversalOf != nil {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"a reversal entry cannot be reversed").
				WithDetail("entry_id", entryID)
		}

		policy, err := s.warehouses.Policy(ctx, original.WarehouseID)
		if err != nil {
			return err
		}

		loc, err := s.stocks.GetForUpdate(ctx, original.WarehouseID, original.ProductID)
		if err != nil {
			return fmt.Errorf("lock stock location: %w", err)
		}

		// The location lock serializes reversals of the same entry, so
		// a concurrent double reversal surfaces here as CONFLICT rather
		// than as a unique-index violation from the journal insert.
		reversed, err := s.entries.HasReversal(ctx, entryID)
		if err != nil {
			return fmt.Errorf("check reversal: %w", err)
		}
		if reversed {
			return apperror.NewConflict("entry is already reversed").
				WithDetail("entry_id", entryID)
		}

		compDirection := movement.DirectionIn
		if original.Direction == movement.DirectionIn {
			compDirection = movement.DirectionOut
		}

		if compDirection == movement.DirectionOut &&
			!policy.AllowNegative && original.Quantity.GreaterThan(loc.Available()) {
			return apperror.NewInsufficientStock(
				original.ProductID.String(), original.WarehouseID.String(),
				original.Quantity, loc.Available())
		}

		origID := original.ID
		comp = Entry{
			ID:          id.New(),
			TypeCode:    original.TypeCode,
			Direction:   compDirection,
			ProductID:   original.ProductID,
			WarehouseID: original.WarehouseID,
			Quantity:    original.Quantity,
			// Stock returns at the cost it left with.
			UnitCost:      original.UnitCost,
			AffectsCost:   compDirection == movement.DirectionIn,
			ReferenceType: original.ReferenceType,
			ReferenceID:   original.ReferenceID,
			ReversalOf:    &origID,
			PostedAt:      time.Now().UTC(),
			PostedBy:      appcontext.ActorID(ctx),
		}

		if err := s.entries.Insert(ctx, &comp); err != nil {
			return fmt.Errorf("append reversal entry: %w", err)
		}

		Apply(&loc, comp)
		loc.UpdatedAt = comp.PostedAt
		if err := s.stocks.Save(ctx, &loc); err != nil {
			return fmt.Errorf("save stock location: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	logger.Info(ctx, "movement reversed",
		"original_id", original.ID,
		"reversal_id", comp.ID,
		"type", original.TypeCode,
	)
	return comp, nil
}

// AdjustOrdered shifts the expected-arrival quantity for a location.
// Used by production order release and completion; runs inside the
// caller's transaction.
func (s *Service) AdjustOrdered(ctx context.Context, warehouseID, productID id.ID, delta types.Quantity) error {
	loc, err := s.stocks.GetForUpdate(ctx, warehouseID, productID)
	if err != nil {
		return fmt.Errorf("lock stock location: %w", err)
	}
	loc.Ordered = types.RoundQuantity(loc.Ordered.Add(delta))
	if loc.Ordered.IsNegative() {
		loc.Ordered = types.Zero()
	}
	loc.UpdatedAt = time.Now().UTC()
	if err := s.stocks.Save(ctx, &loc); err != nil {
		return fmt.Errorf("save stock location: %w", err)
	}
	return nil
}

package dto

import (
	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

func parseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// PostMovementRequest is the request body for posting a movement.
type PostMovementRequest struct {
	TypeCode      string         `json:"typeCode" binding:"required"`
	ProductID     string         `json:"productId" binding:"required,uuid"`
	WarehouseID   string         `json:"warehouseId" binding:"required,uuid"`
	Quantity      types.Quantity `json:"quantity" binding:"positive"`
	UnitCost      *types.Money   `json:"unitCost"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   string         `json:"referenceId"`
	ReservationID *string        `json:"reservationId"`
}

// ToCommand converts the request to a posting command.
func (r *PostMovementRequest) ToCommand() (ledger.PostCommand, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return ledger.PostCommand{}, err
	}
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return ledger.PostCommand{}, err
	}

	cmd := ledger.PostCommand{
		TypeCode:      r.TypeCode,
		ProductID:     productID,
		WarehouseID:   warehouseID,
		Quantity:      r.Quantity,
		UnitCost:      r.UnitCost,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
	}
	if r.ReservationID != nil {
		reservationID, err := parseID("reservationId", *r.ReservationID)
		if err != nil {
			return ledger.PostCommand{}, err
		}
		cmd.ReservationID = &reservationID
	}
	return cmd, nil
}

// PostDirectionalRequest is the body of the incoming and outgoing
// shortcut endpoints. TypeCode is optional; the service defaults it
// per direction.
type PostDirectionalRequest struct {
	TypeCode      string         `json:"typeCode"`
	ProductID     string         `json:"productId" binding:"required,uuid"`
	WarehouseID   string         `json:"warehouseId" binding:"required,uuid"`
	Quantity      types.Quantity `json:"quantity" binding:"positive"`
	UnitCost      *types.Money   `json:"unitCost"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   string         `json:"referenceId"`
	ReservationID *string        `json:"reservationId"`
}

// ToCommand converts the request to a posting command.
func (r *PostDirectionalRequest) ToCommand() (ledger.PostCommand, error) {
	full := PostMovementRequest{
		TypeCode:      r.TypeCode,
		ProductID:     r.ProductID,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		UnitCost:      r.UnitCost,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
		ReservationID: r.ReservationID,
	}
	return full.ToCommand()
}

// AdjustmentRequest corrects stock by a signed delta.
type AdjustmentRequest struct {
	ProductID     string         `json:"productId" binding:"required,uuid"`
	WarehouseID   string         `json:"warehouseId" binding:"required,uuid"`
	Delta         types.Quantity `json:"delta" binding:"required"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   string         `json:"referenceId"`
}

// ParseIDs returns the parsed location of the adjustment.
func (r *AdjustmentRequest) ParseIDs() (warehouseID, productID id.ID, err error) {
	warehouseID, err = parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return id.Nil(), id.Nil(), err
	}
	productID, err = parseID("productId", r.ProductID)
	if err != nil {
		return id.Nil(), id.Nil(), err
	}
	return warehouseID, productID, nil
}

// ShipRequest turns a reservation into an outbound movement. All fields
// are optional; omitted ones come from the reservation itself.
type ShipRequest struct {
	TypeCode      string          `json:"typeCode"`
	Quantity      *types.Quantity `json:"quantity"`
	ReferenceType string          `json:"referenceType"`
	ReferenceID   string          `json:"referenceId"`
}

// TransferRequest is the request body for a warehouse transfer.
// An omitted unitCost lets the destination receive at the source's
// average cost.
type TransferRequest struct {
	ProductID       string         `json:"productId" binding:"required,uuid"`
	FromWarehouseID string         `json:"fromWarehouseId" binding:"required,uuid"`
	ToWarehouseID   string         `json:"toWarehouseId" binding:"required,uuid"`
	Quantity        types.Quantity `json:"quantity" binding:"positive"`
	UnitCost        *types.Money   `json:"unitCost"`
	ReferenceType   string         `json:"referenceType" binding:"required"`
	ReferenceID     string         `json:"referenceId" binding:"required"`
}

// ToCommand converts the request to a transfer command.
func (r *TransferRequest) ToCommand() (ledger.TransferCommand, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return ledger.TransferCommand{}, err
	}
	fromID, err := parseID("fromWarehouseId", r.FromWarehouseID)
	if err != nil {
		return ledger.TransferCommand{}, err
	}
	toID, err := parseID("toWarehouseId", r.ToWarehouseID)
	if err != nil {
		return ledger.TransferCommand{}, err
	}

	return ledger.TransferCommand{
		ProductID:       productID,
		FromWarehouseID: fromID,
		ToWarehouseID:   toID,
		Quantity:        r.Quantity,
		UnitCost:        r.UnitCost,
		ReferenceType:   r.ReferenceType,
		ReferenceID:     r.ReferenceID,
	}, nil
}

// TransferResponse carries the paired journal legs.
type TransferResponse struct {
	Out ledger.Entry `json:"out"`
	In  ledger.Entry `json:"in"`
}

// ReserveRequest is the request body for placing a reservation.
type ReserveRequest struct {
	WarehouseID   string         `json:"warehouseId" binding:"required,uuid"`
	ProductID     string         `json:"productId" binding:"required,uuid"`
	Quantity      types.Quantity `json:"quantity" binding:"positive"`
	ReferenceType string         `json:"referenceType" binding:"required"`
	ReferenceID   string         `json:"referenceId" binding:"required"`
}

// ToCommand converts the request to a reserve command.
func (r *ReserveRequest) ToCommand() (ledger.ReserveCommand, error) {
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return ledger.ReserveCommand{}, err
	}
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return ledger.ReserveCommand{}, err
	}

	return ledger.ReserveCommand{
		WarehouseID:   warehouseID,
		ProductID:     productID,
		Quantity:      r.Quantity,
		ReferenceType: r.ReferenceType,
		ReferenceID:   r.ReferenceID,
	}, nil
}

// ReleaseReservationRequest is the request body for releasing held stock.
type ReleaseReservationRequest struct {
	Quantity types.Quantity `json:"quantity" binding:"positive"`
}

// CountLineRequest is one line of a physical count sheet.
type CountLineRequest struct {
	ProductID  string         `json:"productId" binding:"required,uuid"`
	CountedQty types.Quantity `json:"countedQty"`
}

// PostCountRequest is the request body for posting a physical count.
type PostCountRequest struct {
	WarehouseID string             `json:"warehouseId" binding:"required,uuid"`
	ReferenceID string             `json:"referenceId" binding:"required"`
	Lines       []CountLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToCommand converts the request to a count command.
func (r *PostCountRequest) ToCommand() (ledger.CountCommand, error) {
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return ledger.CountCommand{}, err
	}

	lines := make([]ledger.CountLine, len(r.Lines))
	for i, line := range r.Lines {
		productID, err := parseID("lines.productId", line.ProductID)
		if err != nil {
			return ledger.CountCommand{}, err
		}
		lines[i] = ledger.CountLine{
			ProductID:  productID,
			CountedQty: line.CountedQty,
		}
	}

	return ledger.CountCommand{
		WarehouseID: warehouseID,
		ReferenceID: r.ReferenceID,
		Lines:       lines,
	}, nil
}

// TotalOnHandResponse reports a product's quantity across all warehouses.
type TotalOnHandResponse struct {
	ProductID string         `json:"productId"`
	OnHand    types.Quantity `json:"onHand"`
}

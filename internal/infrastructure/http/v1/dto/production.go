package dto

import (
	"kardex/internal/core/types"
	"kardex/internal/domain/production"
)

// BOMLineRequest is one component line of a bill of materials.
type BOMLineRequest struct {
	ComponentID string         `json:"componentId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity" binding:"positive"`
}

// CreateBOMRequest is the request body for creating a bill of materials.
type CreateBOMRequest struct {
	Code      string           `json:"code" binding:"required"`
	Name      string           `json:"name" binding:"required"`
	ProductID string           `json:"productId" binding:"required,uuid"`
	BatchSize types.Quantity   `json:"batchSize" binding:"positive"`
	Lines     []BOMLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the DTO to a domain entity.
func (r *CreateBOMRequest) ToEntity() (production.BOM, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return production.BOM{}, err
	}

	b := production.NewBOM(r.Code, r.Name, productID, r.BatchSize)
	b.Lines, err = toBOMLines(r.Lines)
	if err != nil {
		return production.BOM{}, err
	}
	return b, nil
}

func toBOMLines(lines []BOMLineRequest) ([]production.BOMLine, error) {
	out := make([]production.BOMLine, len(lines))
	for i, line := range lines {
		componentID, err := parseID("lines.componentId", line.ComponentID)
		if err != nil {
			return nil, err
		}
		out[i] = production.BOMLine{
			ComponentID: componentID,
			Quantity:    line.Quantity,
		}
	}
	return out, nil
}

// UpdateBOMRequest is the request body for updating a bill of materials.
type UpdateBOMRequest struct {
	Code      string           `json:"code" binding:"required"`
	Name      string           `json:"name" binding:"required"`
	ProductID string           `json:"productId" binding:"required,uuid"`
	BatchSize types.Quantity   `json:"batchSize" binding:"positive"`
	Lines     []BOMLineRequest `json:"lines" binding:"required,min=1,dive"`
	Version   int              `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the update to an existing entity.
func (r *UpdateBOMRequest) ApplyTo(b *production.BOM) error {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return err
	}
	lines, err := toBOMLines(r.Lines)
	if err != nil {
		return err
	}

	b.Code = r.Code
	b.Name = r.Name
	b.ProductID = productID
	b.BatchSize = r.BatchSize
	b.Lines = lines
	b.Version = r.Version
	return nil
}

// CreateOrderRequest is the request body for creating a production order.
type CreateOrderRequest struct {
	BOMID       string         `json:"bomId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	PlannedQty  types.Quantity `json:"plannedQty" binding:"positive"`
	Number      string         `json:"number"`
}

// ToCommand converts the request to a create command.
func (r *CreateOrderRequest) ToCommand() (production.CreateOrderCommand, error) {
	bomID, err := parseID("bomId", r.BOMID)
	if err != nil {
		return production.CreateOrderCommand{}, err
	}
	warehouseID, err := parseID("warehouseId", r.WarehouseID)
	if err != nil {
		return production.CreateOrderCommand{}, err
	}

	return production.CreateOrderCommand{
		BOMID:       bomID,
		WarehouseID: warehouseID,
		PlannedQty:  r.PlannedQty,
		Number:      r.Number,
	}, nil
}

// CompleteOrderRequest carries the actually produced quantity.
type CompleteOrderRequest struct {
	ActualQty types.Quantity `json:"actualQty" binding:"positive"`
}

// RequirementsRequest asks what a given output quantity consumes.
type RequirementsRequest struct {
	BOMID    string         `json:"bomId" binding:"required,uuid"`
	Quantity types.Quantity `json:"quantity" binding:"positive"`
}

// AvailabilityRequest asks whether a warehouse can cover a BOM run.
type AvailabilityRequest struct {
	BOMID       string         `json:"bomId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity" binding:"positive"`
}

// AvailabilityResponse lists shortages; an empty list means covered.
type AvailabilityResponse struct {
	Available bool                  `json:"available"`
	Shortages []production.Shortage `json:"shortages"`
}

package dto

import (
	"kardex/internal/core/types"
	"kardex/internal/domain/catalogs/product"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/domain/movement"
)

// --- Products ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Unit          string          `json:"unit"`
	ReorderPoint  *types.Quantity `json:"reorderPoint"`
	CostPrice     *types.Money    `json:"costPrice"`
	MaxStockLevel *types.Quantity `json:"maxStockLevel"`
}

// ToEntity converts the DTO to a domain entity.
func (r *CreateProductRequest) ToEntity() product.Product {
	p := product.New(r.Code, r.Name, r.SKU, r.Unit)
	if r.ReorderPoint != nil {
		p.ReorderPoint = *r.ReorderPoint
	}
	if r.CostPrice != nil {
		p.CostPrice = *r.CostPrice
	}
	if r.MaxStockLevel != nil {
		p.MaxStockLevel = *r.MaxStockLevel
	}
	return p
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Unit          string          `json:"unit"`
	ReorderPoint  *types.Quantity `json:"reorderPoint"`
	CostPrice     *types.Money    `json:"costPrice"`
	MaxStockLevel *types.Quantity `json:"maxStockLevel"`
	Version       int             `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the update to an existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Code = r.Code
	p.Name = r.Name
	p.SKU = r.SKU
	if r.Unit != "" {
		p.Unit = r.Unit
	}
	if r.ReorderPoint != nil {
		p.ReorderPoint = *r.ReorderPoint
	}
	if r.CostPrice != nil {
		p.CostPrice = *r.CostPrice
	}
	if r.MaxStockLevel != nil {
		p.MaxStockLevel = *r.MaxStockLevel
	}
	p.Version = r.Version
}

// ProductResponse is the response body for a product.
type ProductResponse struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	Name          string         `json:"name"`
	SKU           string         `json:"sku"`
	Unit          string         `json:"unit"`
	ReorderPoint  types.Quantity `json:"reorderPoint"`
	CostPrice     types.Money    `json:"costPrice"`
	MaxStockLevel types.Quantity `json:"maxStockLevel"`
	DeletionMark  bool           `json:"deletionMark"`
	Version       int            `json:"version"`
}

// FromProduct creates a response DTO from a domain entity.
func FromProduct(p product.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID.String(),
		Code:          p.Code,
		Name:          p.Name,
		SKU:           p.SKU,
		Unit:          p.Unit,
		ReorderPoint:  p.ReorderPoint,
		CostPrice:     p.CostPrice,
		MaxStockLevel: p.MaxStockLevel,
		DeletionMark:  p.DeletionMark,
		Version:       p.Version,
	}
}

// FromProducts maps a product slice to response DTOs.
func FromProducts(items []product.Product) []ProductResponse {
	out := make([]ProductResponse, len(items))
	for i, p := range items {
		out[i] = FromProduct(p)
	}
	return out
}

// --- Warehouses ---

// CreateWarehouseRequest is the request body for creating a warehouse.
// Omitted direction flags stay open.
type CreateWarehouseRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address"`
	AllowNegative bool   `json:"allowNegative"`
	CanReceive    *bool  `json:"canReceive"`
	CanShip       *bool  `json:"canShip"`
}

// ToEntity converts the DTO to a domain entity.
func (r *CreateWarehouseRequest) ToEntity() warehouse.Warehouse {
	w := warehouse.New(r.Code, r.Name)
	w.Address = r.Address
	w.AllowNegative = r.AllowNegative
	if r.CanReceive != nil {
		w.CanReceive = *r.CanReceive
	}
	if r.CanShip != nil {
		w.CanShip = *r.CanShip
	}
	return w
}

// UpdateWarehouseRequest is the request body for updating a warehouse.
// Omitted direction flags keep their current value.
type UpdateWarehouseRequest struct {
	Code          string `json:"code" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Address       string `json:"address"`
	AllowNegative bool   `json:"allowNegative"`
	CanReceive    *bool  `json:"canReceive"`
	CanShip       *bool  `json:"canShip"`
	Version       int    `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the update to an existing entity.
func (r *UpdateWarehouseRequest) ApplyTo(w *warehouse.Warehouse) {
	w.Code = r.Code
	w.Name = r.Name
	w.Address = r.Address
	w.AllowNegative = r.AllowNegative
	if r.CanReceive != nil {
		w.CanReceive = *r.CanReceive
	}
	if r.CanShip != nil {
		w.CanShip = *r.CanShip
	}
	w.Version = r.Version
}

// WarehouseResponse is the response body for a warehouse.
type WarehouseResponse struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	AllowNegative bool   `json:"allowNegative"`
	CanReceive    bool   `json:"canReceive"`
	CanShip       bool   `json:"canShip"`
	DeletionMark  bool   `json:"deletionMark"`
	Version       int    `json:"version"`
}

// FromWarehouse creates a response DTO from a domain entity.
func FromWarehouse(w warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:            w.ID.String(),
		Code:          w.Code,
		Name:          w.Name,
		Address:       w.Address,
		AllowNegative: w.AllowNegative,
		CanReceive:    w.CanReceive,
		CanShip:       w.CanShip,
		DeletionMark:  w.DeletionMark,
		Version:       w.Version,
	}
}

// FromWarehouses maps a warehouse slice to response DTOs.
func FromWarehouses(items []warehouse.Warehouse) []WarehouseResponse {
	out := make([]WarehouseResponse, len(items))
	for i, w := range items {
		out[i] = FromWarehouse(w)
	}
	return out
}

// --- Movement types ---

// CreateMovementTypeRequest is the request body for a custom movement type.
type CreateMovementTypeRequest struct {
	Code              string `json:"code" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Direction         string `json:"direction" binding:"required,oneof=IN OUT"`
	RequiresReference bool   `json:"requiresReference"`
	AffectsCost       bool   `json:"affectsCost"`
}

// ToEntity converts the DTO to a domain entity.
func (r *CreateMovementTypeRequest) ToEntity() movement.Type {
	t := movement.NewType(r.Code, r.Name, movement.Direction(r.Direction))
	t.RequiresReference = r.RequiresReference
	t.AffectsCost = r.AffectsCost
	return t
}

// UpdateMovementTypeRequest is the request body for updating a movement type.
// Code and direction are frozen after creation.
type UpdateMovementTypeRequest struct {
	Code              string `json:"code" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Direction         string `json:"direction" binding:"required,oneof=IN OUT"`
	RequiresReference bool   `json:"requiresReference"`
	AffectsCost       bool   `json:"affectsCost"`
	Version           int    `json:"version" binding:"required,min=1"`
}

// ApplyTo applies the update to an existing entity.
func (r *UpdateMovementTypeRequest) ApplyTo(t *movement.Type) {
	t.Code = r.Code
	t.Name = r.Name
	t.Direction = movement.Direction(r.Direction)
	t.RequiresReference = r.RequiresReference
	t.AffectsCost = r.AffectsCost
	t.Version = r.Version
}

// MovementTypeResponse is the response body for a movement type.
type MovementTypeResponse struct {
	ID                string `json:"id"`
	Code              string `json:"code"`
	Name              string `json:"name"`
	Direction         string `json:"direction"`
	RequiresReference bool   `json:"requiresReference"`
	AffectsCost       bool   `json:"affectsCost"`
	IsSystem          bool   `json:"isSystem"`
	DeletionMark      bool   `json:"deletionMark"`
	Version           int    `json:"version"`
}

// FromMovementType creates a response DTO from a domain entity.
func FromMovementType(t movement.Type) MovementTypeResponse {
	return MovementTypeResponse{
		ID:                t.ID.String(),
		Code:              t.Code,
		Name:              t.Name,
		Direction:         string(t.Direction),
		RequiresReference: t.RequiresReference,
		AffectsCost:       t.AffectsCost,
		IsSystem:          t.IsSystem,
		DeletionMark:      t.DeletionMark,
		Version:           t.Version,
	}
}

// FromMovementTypes maps a movement type slice to response DTOs.
func FromMovementTypes(items []movement.Type) []MovementTypeResponse {
	out := make([]MovementTypeResponse, len(items))
	for i, t := range items {
		out[i] = FromMovementType(t)
	}
	return out
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"kardex/internal/core/id"
	"kardex/internal/domain/production"
	"kardex/internal/infrastructure/http/v1/dto"
)

// ProductionHandler serves bills of materials and production orders.
type ProductionHandler struct {
	*BaseHandler
	service *production.Service
}

// NewProductionHandler creates a production handler.
func NewProductionHandler(base *BaseHandler, service *production.Service) *ProductionHandler {
	return &ProductionHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the production endpoints.
func (h *ProductionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/boms", h.ListBOMs)
	rg.GET("/boms/:id", h.GetBOM)
	rg.POST("/boms", h.CreateBOM)
	rg.PUT("/boms/:id", h.UpdateBOM)
	rg.POST("/required-quantities", h.RequiredQuantities)
	rg.POST("/availability-check", h.CheckAvailability)

	rg.GET("/orders", h.ListOrders)
	rg.GET("/orders/:id", h.GetOrder)
	rg.POST("/orders", h.CreateOrder)
	rg.POST("/orders/:id/release", h.ReleaseOrder)
	rg.POST("/orders/:id/complete", h.CompleteOrder)
	rg.POST("/orders/:id/cancel", h.CancelOrder)
}

// ListBOMs returns all bills of materials.
func (h *ProductionHandler) ListBOMs(c *gin.Context) {
	items, err := h.service.ListBOMs(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

// GetBOM returns one bill of materials with its lines.
func (h *ProductionHandler) GetBOM(c *gin.Context) {
	bomID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetBOM(c.Request.Context(), bomID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, b)
}

// CreateBOM adds a bill of materials.
func (h *ProductionHandler) CreateBOM(c *gin.Context) {
	var req dto.CreateBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	b, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.CreateBOM(c.Request.Context(), &b); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, b.ID)
}

// UpdateBOM modifies a bill of materials.
func (h *ProductionHandler) UpdateBOM(c *gin.Context) {
	bomID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.GetBOM(c.Request.Context(), bomID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(&b); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.UpdateBOM(c.Request.Context(), &b); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, b)
}

// RequiredQuantities returns the component quantities for an output.
func (h *ProductionHandler) RequiredQuantities(c *gin.Context) {
	var req dto.RequirementsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bomID, err := id.Parse(req.BOMID)
	if err != nil {
		h.Error(c, err)
		return
	}

	lines, err := h.service.RequiredQuantities(c.Request.Context(), bomID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(lines, len(lines)))
}

// CheckAvailability reports component shortages for a planned run.
func (h *ProductionHandler) CheckAvailability(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bomID, err := id.Parse(req.BOMID)
	if err != nil {
		h.Error(c, err)
		return
	}
	warehouseID, err := id.Parse(req.WarehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	shortages, err := h.service.CheckAvailability(c.Request.Context(), bomID, warehouseID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AvailabilityResponse{
		Available: len(shortages) == 0,
		Shortages: shortages,
	})
}

// ListOrders returns production orders matching the query filter.
func (h *ProductionHandler) ListOrders(c *gin.Context) {
	filter := production.OrderFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if status := c.Query("status"); status != "" {
		s := production.OrderStatus(status)
		filter.Status = &s
	}
	if val := c.Query("productId"); val != "" {
		productID, err := id.Parse(val)
		if err == nil {
			filter.ProductID = &productID
		}
	}
	if val := c.Query("warehouseId"); val != "" {
		warehouseID, err := id.Parse(val)
		if err == nil {
			filter.WarehouseID = &warehouseID
		}
	}

	items, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

// GetOrder returns one production order.
func (h *ProductionHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// CreateOrder creates a draft production order.
func (h *ProductionHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	o, err := h.service.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o.ID)
}

// ReleaseOrder reserves components and marks the order released.
func (h *ProductionHandler) ReleaseOrder(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.service.Release(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// CompleteOrder consumes components and receives the finished product.
func (h *ProductionHandler) CompleteOrder(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Complete(c.Request.Context(), orderID, req.ActualQty)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// CancelOrder cancels a draft or released order, freeing any holds.
func (h *ProductionHandler) CancelOrder(c *gin.Context) {
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.service.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

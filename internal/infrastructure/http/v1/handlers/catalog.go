package handlers

import (
	"github.com/gin-gonic/gin"

	"kardex/internal/domain/catalogs/product"
	"kardex/internal/domain/catalogs/warehouse"
	"kardex/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product catalog.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the product endpoints.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// List returns products, optionally filtered by a search term.
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.Filter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromProducts(items), len(items)))
}

// Get returns one product.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// Create adds a product.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), &p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID)
}

// Update modifies a product with optimistic locking.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(&p)

	if err := h.service.Update(c.Request.Context(), &p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// Delete soft-deletes a product.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// WarehouseHandler serves the warehouse catalog.
type WarehouseHandler struct {
	*BaseHandler
	service *warehouse.Service
}

// NewWarehouseHandler creates a warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the warehouse endpoints.
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// List returns all warehouses.
func (h *WarehouseHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromWarehouses(items), len(items)))
}

// Get returns one warehouse.
func (h *WarehouseHandler) Get(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	w, err := h.service.Get(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWarehouse(w))
}

// Create adds a warehouse.
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req dto.CreateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), &w); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, w.ID)
}

// Update modifies a warehouse with optimistic locking.
func (h *WarehouseHandler) Update(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateWarehouseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	w, err := h.service.Get(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(&w)

	if err := h.service.Update(c.Request.Context(), &w); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromWarehouse(w))
}

// Delete soft-deletes a warehouse.
func (h *WarehouseHandler) Delete(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), warehouseID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"kardex/internal/domain/movement"
	"kardex/internal/infrastructure/http/v1/dto"
)

// MovementTypeHandler serves the movement type registry.
type MovementTypeHandler struct {
	*BaseHandler
	registry *movement.Registry
}

// NewMovementTypeHandler creates a movement type handler.
func NewMovementTypeHandler(base *BaseHandler, registry *movement.Registry) *MovementTypeHandler {
	return &MovementTypeHandler{BaseHandler: base, registry: registry}
}

// RegisterRoutes mounts the movement type endpoints.
func (h *MovementTypeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:code", h.Resolve)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// List returns all movement types, system types first.
func (h *MovementTypeHandler) List(c *gin.Context) {
	items, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromMovementTypes(items), len(items)))
}

// Resolve returns the movement type for a code.
func (h *MovementTypeHandler) Resolve(c *gin.Context) {
	t, err := h.registry.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovementType(t))
}

// Create registers a user-defined movement type.
func (h *MovementTypeHandler) Create(c *gin.Context) {
	var req dto.CreateMovementTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t := req.ToEntity()
	if err := h.registry.Create(c.Request.Context(), &t); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t.ID)
}

// Update modifies a user-defined movement type.
func (h *MovementTypeHandler) Update(c *gin.Context) {
	typeID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateMovementTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var t movement.Type
	t.ID = typeID
	req.ApplyTo(&t)

	if err := h.registry.Update(c.Request.Context(), &t); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovementType(t))
}

// Delete soft-deletes a user-defined movement type.
func (h *MovementTypeHandler) Delete(c *gin.Context) {
	typeID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.registry.Delete(c.Request.Context(), typeID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

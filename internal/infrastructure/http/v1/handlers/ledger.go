package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves journal postings, reservations, stock queries
// and reports.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// RegisterRoutes mounts the ledger endpoints.
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/movements", h.Post)
	rg.GET("/movements", h.ListEntries)
	rg.GET("/movements/:id", h.GetEntry)
	rg.POST("/movements/:id/reverse", h.Reverse)

	rg.POST("/incoming", h.PostIncoming)
	rg.POST("/outgoing", h.PostOutgoing)
	rg.POST("/adjustments", h.PostAdjustment)
	rg.POST("/transfers", h.Transfer)
	rg.POST("/counts", h.PostCount)

	rg.POST("/reservations", h.Reserve)
	rg.GET("/reservations", h.ListReservations)
	rg.GET("/reservations/:id", h.GetReservation)
	rg.POST("/reservations/:id/release", h.ReleaseReservation)
	rg.POST("/reservations/:id/ship", h.Ship)

	rg.GET("/stock", h.GetStock)
	rg.GET("/stock/balance", h.BalanceAtDate)
	rg.GET("/stock/warehouse/:id", h.ListWarehouseStock)
	rg.GET("/stock/product/:id", h.ListProductStock)
	rg.GET("/stock/product/:id/total", h.TotalOnHand)
	rg.POST("/stock/rebuild", h.Rebuild)

	rg.GET("/reports/turnover", h.Turnover)
	rg.GET("/reports/low-stock", h.LowStock)
}

// Post appends one movement to the journal.
func (h *LedgerHandler) Post(c *gin.Context) {
	var req dto.PostMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.Post(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// PostIncoming receives goods through the inbound shortcut.
func (h *LedgerHandler) PostIncoming(c *gin.Context) {
	var req dto.PostDirectionalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.PostIncoming(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// PostOutgoing issues goods through the outbound shortcut.
func (h *LedgerHandler) PostOutgoing(c *gin.Context) {
	var req dto.PostDirectionalRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.PostOutgoing(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// PostAdjustment corrects stock by a signed delta.
func (h *LedgerHandler) PostAdjustment(c *gin.Context) {
	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	warehouseID, productID, err := req.ParseIDs()
	if err != nil {
		h.Error(c, err)
		return
	}

	entry, err := h.service.PostAdjustment(c.Request.Context(),
		warehouseID, productID, req.Delta, req.ReferenceType, req.ReferenceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// Ship consumes a reservation with an outbound posting.
func (h *LedgerHandler) Ship(c *gin.Context) {
	reservationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ShipRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := ledger.PostCommand{
		TypeCode:      req.TypeCode,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
	}
	if req.Quantity != nil {
		cmd.Quantity = *req.Quantity
	}

	entry, err := h.service.Ship(c.Request.Context(), reservationID, cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// ListEntries returns journal entries matching the query filter.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	filter := ledger.EntryFilter{
		TypeCode:      c.Query("typeCode"),
		ReferenceType: c.Query("referenceType"),
		ReferenceID:   c.Query("referenceId"),
		Limit:         h.ParseIntQuery(c, "limit", 100),
		Offset:        h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if filter.WarehouseID, ok = h.optionalIDQuery(c, "warehouseId"); !ok {
		return
	}
	if filter.ProductID, ok = h.optionalIDQuery(c, "productId"); !ok {
		return
	}
	if filter.FromDate, ok = h.optionalTimeQuery(c, "from"); !ok {
		return
	}
	if filter.ToDate, ok = h.optionalTimeQuery(c, "to"); !ok {
		return
	}

	entries, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries, len(entries)))
}

// GetEntry returns one journal entry.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	entryID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// Reverse posts a compensating entry for a posted movement.
func (h *LedgerHandler) Reverse(c *gin.Context) {
	entryID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Reverse(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// Transfer moves stock between warehouses in one transaction.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	outEntry, inEntry, err := h.service.Transfer(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.TransferResponse{Out: outEntry, In: inEntry})
}

// PostCount posts signed adjustments for a physical count sheet.
func (h *LedgerHandler) PostCount(c *gin.Context) {
	var req dto.PostCountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.PostCount(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Reserve holds available stock for an order.
func (h *LedgerHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.Reserve(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// ListReservations returns active reservations for a location, or all
// reservations for a reference document.
func (h *LedgerHandler) ListReservations(c *gin.Context) {
	ctx := c.Request.Context()

	if refType := c.Query("referenceType"); refType != "" {
		items, err := h.service.ListReservationsByReference(ctx, refType, c.Query("referenceId"))
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewListResponse(items, len(items)))
		return
	}

	warehouseID, err := id.Parse(c.Query("warehouseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("warehouseId and productId are required").
			WithDetail("param", "warehouseId"))
		return
	}
	productID, err := id.Parse(c.Query("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("warehouseId and productId are required").
			WithDetail("param", "productId"))
		return
	}

	items, err := h.service.ListActiveReservations(ctx, warehouseID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

// GetReservation returns one reservation.
func (h *LedgerHandler) GetReservation(c *gin.Context) {
	reservationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := h.service.GetReservation(c.Request.Context(), reservationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// ReleaseReservation returns held quantity to availability.
func (h *LedgerHandler) ReleaseReservation(c *gin.Context) {
	reservationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReleaseReservationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Release(c.Request.Context(), reservationID, req.Quantity)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// GetStock returns the aggregate for one location.
func (h *LedgerHandler) GetStock(c *gin.Context) {
	warehouseID, productID, ok := h.locationQuery(c)
	if !ok {
		return
	}

	loc, err := h.service.GetStock(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// BalanceAtDate returns the journal-replayed balance of a location at
// a point in time.
func (h *LedgerHandler) BalanceAtDate(c *gin.Context) {
	warehouseID, productID, ok := h.locationQuery(c)
	if !ok {
		return
	}
	at, err := time.Parse(time.RFC3339, c.Query("at"))
	if err != nil {
		h.Error(c, apperror.NewValidation("at must be an RFC3339 timestamp").
			WithDetail("param", "at"))
		return
	}

	loc, err := h.service.BalanceAtDate(c.Request.Context(), warehouseID, productID, at)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// ListWarehouseStock returns the non-zero aggregates of a warehouse.
func (h *LedgerHandler) ListWarehouseStock(c *gin.Context) {
	warehouseID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	filter := ledger.StockFilter{
		ExcludeZero: true,
		Limit:       h.ParseIntQuery(c, "limit", 100),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.ListWarehouseStock(c.Request.Context(), warehouseID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

// ListProductStock returns a product's aggregates across warehouses.
func (h *LedgerHandler) ListProductStock(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.service.ListProductStock(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

// TotalOnHand sums a product's on-hand quantity across warehouses.
func (h *LedgerHandler) TotalOnHand(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	total, err := h.service.TotalOnHand(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.TotalOnHandResponse{ProductID: productID.String(), OnHand: total})
}

// Rebuild replays the journal into the aggregate for one location.
func (h *LedgerHandler) Rebuild(c *gin.Context) {
	warehouseID, productID, ok := h.locationQuery(c)
	if !ok {
		return
	}

	loc, err := h.service.Rebuild(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// Turnover reports opening, receipt, expense and closing for a period.
func (h *LedgerHandler) Turnover(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		h.Error(c, apperror.NewValidation("from must be an RFC3339 timestamp").
			WithDetail("param", "from"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		h.Error(c, apperror.NewValidation("to must be an RFC3339 timestamp").
			WithDetail("param", "to"))
		return
	}

	filter := ledger.TurnoverFilter{FromDate: from, ToDate: to}
	var ok bool
	if filter.WarehouseID, ok = h.optionalIDQuery(c, "warehouseId"); !ok {
		return
	}
	if filter.ProductID, ok = h.optionalIDQuery(c, "productId"); !ok {
		return
	}

	report, err := h.service.GetTurnover(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// LowStock returns locations where availability fell below the
// product's reorder point.
func (h *LedgerHandler) LowStock(c *gin.Context) {
	warehouseID, ok := h.optionalIDQuery(c, "warehouseId")
	if !ok {
		return
	}

	items, err := h.service.ListLowStock(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(items, len(items)))
}

func (h *LedgerHandler) locationQuery(c *gin.Context) (warehouseID, productID id.ID, ok bool) {
	warehouseID, err := id.Parse(c.Query("warehouseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId").
			WithDetail("value", c.Query("warehouseId")))
		return id.Nil(), id.Nil(), false
	}
	productID, err = id.Parse(c.Query("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId").
			WithDetail("value", c.Query("productId")))
		return id.Nil(), id.Nil(), false
	}
	return warehouseID, productID, true
}

func (h *LedgerHandler) optionalIDQuery(c *gin.Context, key string) (*id.ID, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	parsed, err := id.Parse(val)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id").
			WithDetail("param", key).
			WithDetail("value", val))
		return nil, false
	}
	return &parsed, true
}

func (h *LedgerHandler) optionalTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		h.Error(c, apperror.NewValidation("timestamp must be RFC3339").
			WithDetail("param", key).
			WithDetail("value", val))
		return nil, false
	}
	return &parsed, true
}

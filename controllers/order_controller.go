package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/guincho-oliveira/crm-api/utils"
	"github.com/shopspring/decimal"
)

// OrderController serves the service order routes
type OrderController struct {
	orders *services.OrderService
	loc    *time.Location
}

// NewOrderController reads client timestamps without a zone in loc
func NewOrderController(orders *services.OrderService, loc *time.Location) *OrderController {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderController{orders: orders, loc: loc}
}

// CreateOrderRequest represents the request body for opening an order
type CreateOrderRequest struct {
	CustomerID  uint             `json:"cliente_id" binding:"required"`
	DriverID    uint             `json:"motorista_id" binding:"required"`
	VehicleID   uint             `json:"veiculo_id" binding:"required"`
	Location    string           `json:"local_atendimento" binding:"required"`
	Description string           `json:"descricao" binding:"required"`
	ScheduledAt string           `json:"data_hora" binding:"required"`
	Value       *decimal.Decimal `json:"valor" binding:"required"`
}

// Create handles POST /api/ordens
func (ctl *OrderController) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	scheduledAt, err := utils.ParseClientTime(req.ScheduledAt, ctl.loc)
	if err != nil {
		respondError(c, invalidDate())
		return
	}

	order, err := ctl.orders.Create(c.Request.Context(), a, services.CreateOrderInput{
		CustomerID:  req.CustomerID,
		DriverID:    req.DriverID,
		VehicleID:   req.VehicleID,
		Location:    req.Location,
		Description: req.Description,
		ScheduledAt: scheduledAt,
		Value:       *req.Value,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// List handles GET /api/ordens with optional status, query, motorista_id,
// data_criacao and data_resolucao filters
func (ctl *OrderController) List(c *gin.Context) {
	filter := services.OrderFilter{
		Status:     models.OrderStatus(c.Query("status")),
		Query:      c.Query("query"),
		CreatedOn:  c.Query("data_criacao"),
		ResolvedOn: c.Query("data_resolucao"),
	}
	if raw := c.Query("motorista_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, apperrors.Validation("INVALID_ID", "motorista_id inválido."))
			return
		}
		driverID := uint(id)
		filter.DriverID = &driverID
	}

	orders, err := ctl.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

// ListByDriver handles GET /api/ordens/motorista/:id
func (ctl *OrderController) ListByDriver(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	orders, err := ctl.orders.ListByDriver(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, orders)
}

// Get handles GET /api/ordens/:id
func (ctl *OrderController) Get(c *gin.Context) {
	order, err := ctl.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/ordens/:id/status
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctl.orders.UpdateStatus(c.Request.Context(), a, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// Reschedule handles PUT /api/ordens/:id/reagendar
func (ctl *OrderController) Reschedule(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		When string `json:"novaDataHora"`
	}
	if !bindJSON(c, &req) {
		return
	}

	// an empty value reaches the service as the zero time and is rejected there
	var when time.Time
	if req.When != "" {
		var err error
		if when, err = utils.ParseClientTime(req.When, ctl.loc); err != nil {
			respondError(c, invalidDate())
			return
		}
	}

	order, err := ctl.orders.Reschedule(c.Request.Context(), a, c.Param("id"), when)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

// Delete handles DELETE /api/ordens/:id
func (ctl *OrderController) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := ctl.orders.Purge(c.Request.Context(), a, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Ordem de serviço excluída com sucesso.")
}

func invalidDate() error {
	return apperrors.Validation("INVALID_DATE", "Data e hora inválidas.")
}

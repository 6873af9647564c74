package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/guincho-oliveira/crm-api/utils"
	"github.com/shopspring/decimal"
)

// LedgerController serves the financial entries and categories
type LedgerController struct {
	ledger *services.LedgerService
	loc    *time.Location
}

func NewLedgerController(ledger *services.LedgerService, loc *time.Location) *LedgerController {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerController{ledger: ledger, loc: loc}
}

// LedgerRequest represents the request body of a manual entry
type LedgerRequest struct {
	Kind        models.LedgerKind `json:"tipo" binding:"required"`
	Description string            `json:"descricao" binding:"required"`
	Amount      *decimal.Decimal  `json:"valor" binding:"required"`
	Date        string            `json:"data" binding:"required"`
	DriverID    *uint             `json:"motorista_id"`
	CategoryID  *uint             `json:"categoria_id"`
}

func (ctl *LedgerController) input(c *gin.Context) (services.LedgerInput, bool) {
	var req LedgerRequest
	if !bindJSON(c, &req) {
		return services.LedgerInput{}, false
	}
	date, err := utils.ParseClientTime(req.Date, ctl.loc)
	if err != nil {
		respondError(c, invalidDate())
		return services.LedgerInput{}, false
	}
	return services.LedgerInput{
		Kind:        req.Kind,
		Description: req.Description,
		Amount:      *req.Amount,
		Date:        date,
		DriverID:    req.DriverID,
		CategoryID:  req.CategoryID,
	}, true
}

// List handles GET /api/financeiro?dataInicio=&dataFim=&tipo=
func (ctl *LedgerController) List(c *gin.Context) {
	filter := services.LedgerFilter{Kind: models.LedgerKind(c.Query("tipo"))}
	for param, target := range map[string]**time.Time{"dataInicio": &filter.From, "dataFim": &filter.To} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		day, _, err := utils.DayRange(raw, ctl.loc)
		if err != nil {
			respondError(c, apperrors.Validation("INVALID_DATE", "Data inválida. Use o formato AAAA-MM-DD."))
			return
		}
		*target = &day
	}

	entries, err := ctl.ledger.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

// Create handles POST /api/financeiro
func (ctl *LedgerController) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	in, ok := ctl.input(c)
	if !ok {
		return
	}
	entry, err := ctl.ledger.Create(c.Request.Context(), a, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, entry)
}

// Update handles PUT /api/financeiro/:id
func (ctl *LedgerController) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, ok := ctl.input(c)
	if !ok {
		return
	}
	entry, err := ctl.ledger.Update(c.Request.Context(), a, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entry)
}

// Delete handles DELETE /api/financeiro/:id
func (ctl *LedgerController) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.ledger.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Lançamento excluído com sucesso.")
}

// Categories handles GET /api/categorias-financeiras
func (ctl *LedgerController) Categories(c *gin.Context) {
	categories, err := ctl.ledger.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categorias-financeiras
func (ctl *LedgerController) CreateCategory(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		Name string            `json:"nome" binding:"required"`
		Kind models.LedgerKind `json:"tipo" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	category, err := ctl.ledger.CreateCategory(c.Request.Context(), a, req.Name, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, category)
}

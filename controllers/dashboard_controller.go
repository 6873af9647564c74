package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/shopspring/decimal"
)

// DashboardController serves the read-only indicators of the home screen
type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// Summary handles GET /api/dashboard/resumo?periodo=
func (ctl *DashboardController) Summary(c *gin.Context) {
	summary, err := ctl.dashboard.Summary(c.Request.Context(), c.DefaultQuery("periodo", services.PeriodMonth))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

// AnnualRevenue handles GET /api/dashboard/faturamento-anual
func (ctl *DashboardController) AnnualRevenue(c *gin.Context) {
	series, err := ctl.dashboard.AnnualRevenue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, series)
}

// ProfitByDriver handles GET /api/dashboard/lucro-por-motorista
func (ctl *DashboardController) ProfitByDriver(c *gin.Context) {
	series, err := ctl.dashboard.ProfitByDriver(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, series)
}

// RevenuePeaks handles GET /api/dashboard/picos-faturamento?agruparPor=dia|hora
func (ctl *DashboardController) RevenuePeaks(c *gin.Context) {
	series, err := ctl.dashboard.RevenuePeaks(c.Request.Context(), c.DefaultQuery("agruparPor", services.GroupByDay))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, series)
}

// DriverProductivity handles GET /api/dashboard/motorista/:id/produtividade
func (ctl *DashboardController) DriverProductivity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	days, err := ctl.dashboard.DriverProductivity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, days)
}

// SetProfitGoal handles PUT /api/dashboard/meta-lucro
func (ctl *DashboardController) SetProfitGoal(c *gin.Context) {
	var req struct {
		Goal *decimal.Decimal `json:"metaLucro" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.dashboard.SetProfitGoal(c.Request.Context(), *req.Goal); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Meta de lucro atualizada.")
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/services"
)

const defaultLogLimit = 500

// AuditController exposes the audit log
type AuditController struct {
	audit *services.AuditService
}

func NewAuditController(audit *services.AuditService) *AuditController {
	return &AuditController{audit: audit}
}

// List handles GET /api/logs?limite=
func (ctl *AuditController) List(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limite"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := ctl.audit.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

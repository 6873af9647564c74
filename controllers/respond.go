package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/middleware"
	"github.com/guincho-oliveira/crm-api/services"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// respondError writes the error envelope. Persistence causes are logged, never returned.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.Err != nil {
		log.Printf("%s %s: %s: %v", c.Request.Method, c.FullPath(), appErr.Code, appErr.Err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Retryable() {
		body["retryable"] = true
	}
	c.JSON(appErr.HTTPStatus(), gin.H{
		"success": false,
		"error":   body,
	})
}

// bindJSON parses the request body, answering 400 on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Dados da requisição inválidos.",
				"details": err.Error(),
			},
		})
		return false
	}
	return true
}

// actor returns the authenticated user set by the auth gate
func actor(c *gin.Context) (services.Actor, bool) {
	a, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Não foi possível identificar o usuário.",
			},
		})
		return services.Actor{}, false
	}
	return a, true
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "ID inválido.",
			},
		})
		return 0, false
	}
	return uint(id), true
}

package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validation", apperrors.Validation("VALIDATION_ERROR", "campo"), http.StatusBadRequest, "VALIDATION_ERROR", false},
		{"not found", apperrors.NotFound("ORDER_NOT_FOUND", "OS"), http.StatusNotFound, "ORDER_NOT_FOUND", false},
		{"conflict", apperrors.Conflict("EMAIL_IN_USE", "email"), http.StatusConflict, "EMAIL_IN_USE", false},
		{"unavailable", apperrors.Unavailable("banco", errors.New("timeout")), http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE", true},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "DATABASE_ERROR", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, http.MethodGet, "/x", "/x", func(c *gin.Context) { respondError(c, tt.err) }, nil, nil)
			require.Equal(t, tt.status, w.Code)

			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			errBody := body["error"].(map[string]any)
			assert.Equal(t, tt.code, errBody["code"])
			if tt.retryable {
				assert.Equal(t, true, errBody["retryable"])
			} else {
				assert.NotContains(t, errBody, "retryable")
			}
			assert.NotContains(t, w.Body.String(), "boom", "causes stay in the log")
		})
	}
}

func TestIDParam(t *testing.T) {
	handler := func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if ok {
			respond(c, http.StatusOK, id)
		}
	}
	for path, want := range map[string]int{
		"/itens/12":  http.StatusOK,
		"/itens/0":   http.StatusBadRequest,
		"/itens/-1":  http.StatusBadRequest,
		"/itens/abc": http.StatusBadRequest,
	} {
		w := serve(t, http.MethodGet, "/itens/:id", path, handler, nil, nil)
		assert.Equal(t, want, w.Code, path)
	}
}

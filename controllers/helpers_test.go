package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/middleware"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/guincho-oliveira/crm-api/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var operator = services.Actor{UserID: 7, Name: "Atendente", Role: models.RoleOperations}

type harness struct {
	db      *gorm.DB
	loc     *time.Location
	catalog testutil.Catalog
	opts    services.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc := testutil.SaoPaulo(t)
	db := testutil.NewTestDB(t)
	return &harness{
		db:      db,
		loc:     loc,
		catalog: testutil.SeedCatalog(t, db),
		opts: services.Options{
			Location: loc,
			Logger:   log.New(io.Discard, "", 0),
		},
	}
}

// serve runs one request through a router holding a single route. A nil
// actor leaves the request unauthenticated.
func serve(t *testing.T, method, route, path string, handler gin.HandlerFunc, a *services.Actor, body any) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if a != nil {
			middleware.SetActor(c, *a)
		}
		c.Next()
	}, handler)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %s", w.Body.String())
	code, _ := errBody["code"].(string)
	return code
}

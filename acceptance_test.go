package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/config"
	"github.com/guincho-oliveira/crm-api/routes"
	"github.com/guincho-oliveira/crm-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves the fully wired application over a real listener
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sqliteEnv(t)
	t.Setenv("PRIMARY_ADMIN_EMAIL", "admin@guinchooliveira.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	cfg, err := config.Load()
	require.NoError(t, err)
	db := testutil.NewTestDB(t)

	a, err := buildApp(context.Background(), cfg, db)
	require.NoError(t, err)
	t.Cleanup(a.close)

	_, created, err := a.deps.Users.EnsurePrimaryAdmin(context.Background(), "Administrador", "segredo123")
	require.NoError(t, err)
	require.True(t, created)

	server := httptest.NewServer(routes.NewRouter(a.deps))
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestServerAcceptance(t *testing.T) {
	server := startServer(t)

	resp, body := call(t, http.MethodGet, server.URL+"/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Guincho Oliveira API is running", body["message"])

	resp, body = call(t, http.MethodPost, server.URL+"/api/login", "", map[string]any{
		"email": "admin@guinchooliveira.com",
		"senha": "segredo123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token := body["data"].(map[string]any)["token"].(string)

	resp, body = call(t, http.MethodPost, server.URL+"/api/motoristas", token, map[string]any{
		"nome":       "Carlos Reboque",
		"cnh_numero": "98765432100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	driverID := body["data"].(map[string]any)["id"]

	resp, _ = call(t, http.MethodGet, fmt.Sprintf("%s/api/motoristas/%v", server.URL, driverID), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = call(t, http.MethodGet, server.URL+"/api/categorias-financeiras", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["data"])
}

func TestCORSPreflight(t *testing.T) {
	server := startServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/ordens", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

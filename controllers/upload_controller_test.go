package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := services.NewLocalAttachmentStore(t.TempDir(), "/api/anexos")
	key := "ordens/0325-0001/0b5d3a4e-8f6c-4b8e-9d0a-1c2b3d4e5f60_laudo.pdf"
	content := []byte("%PDF-1.4 conteúdo")
	require.NoError(t, store.Put(context.Background(), key, "application/pdf", content))

	router := gin.New()
	router.GET("/anexos/*key", NewAttachmentController(store).Download)

	tests := []struct {
		name string
		path string
		want int
		code string
	}{
		{"existing file", "/anexos/" + key, http.StatusOK, ""},
		{"missing file", "/anexos/ordens/0325-0001/nada.pdf", http.StatusNotFound, "FILE_NOT_FOUND"},
		{"directory", "/anexos/ordens/0325-0001", http.StatusNotFound, "FILE_NOT_FOUND"},
		{"empty key", "/anexos/", http.StatusBadRequest, "INVALID_REQUEST"},
		{"backslash", "/anexos/ordens%5C..%5Csegredo", http.StatusBadRequest, "INVALID_FILENAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				return
			}
			assert.Equal(t, content, w.Body.Bytes())
			assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="laudo.pdf"`)
			assert.Equal(t, "private, max-age=3600", w.Header().Get("Cache-Control"))
		})
	}
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "laudo.pdf", downloadName("ordens/0325-0001/0b5d3a4e_laudo.pdf"))
	assert.Equal(t, "foto_final.jpg", downloadName("ordens/x/uuid_foto_final.jpg"))
	assert.Equal(t, "semprefixo.txt", downloadName("semprefixo.txt"))
}

package controllers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/services"
)

// AttachmentController serves files kept by the local attachment store.
// With S3 storage clients download through presigned URLs instead.
type AttachmentController struct {
	store *services.LocalAttachmentStore
}

func NewAttachmentController(store *services.LocalAttachmentStore) *AttachmentController {
	return &AttachmentController{store: store}
}

// Download handles GET /api/anexos/*key
func (ctl *AttachmentController) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Arquivo não informado.",
			},
		})
		return
	}

	// Security: Prevent directory traversal attacks
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILENAME",
				"message": "Nome de arquivo inválido.",
			},
		})
		return
	}

	filePath, err := ctl.store.Path(key)
	if err != nil {
		notFoundFile(c)
		return
	}
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		notFoundFile(c)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.FileAttachment(filePath, downloadName(key))
}

func notFoundFile(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FILE_NOT_FOUND",
			"message": "Arquivo não encontrado.",
		},
	})
}

// downloadName strips the directory and the uuid prefix from a storage key
func downloadName(key string) string {
	name := key[strings.LastIndex(key, "/")+1:]
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/guincho-oliveira/crm-api/utils"
)

// NoteController serves the timeline of a service order: comments,
// system annotations and attachments
type NoteController struct {
	orders *services.OrderService
}

func NewNoteController(orders *services.OrderService) *NoteController {
	return &NoteController{orders: orders}
}

// CreateNoteRequest represents the request body for a timeline comment
type CreateNoteRequest struct {
	Author string `json:"autor"`
	Text   string `json:"nota" binding:"required"`
}

// AttachmentRequest represents an upload sent as base64 or a data URL
type AttachmentRequest struct {
	Author   string `json:"autor"`
	FileName string `json:"fileName"`
	FileData string `json:"fileData"`
}

// List handles GET /api/ordens/:id/notas - oldest first
func (ctl *NoteController) List(c *gin.Context) {
	notes, err := ctl.orders.ListNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, notes)
}

// Add handles POST /api/ordens/:id/notas
func (ctl *NoteController) Add(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	note, err := ctl.orders.AddNote(c.Request.Context(), a, c.Param("id"), req.Author, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, note)
}

// Attach handles POST /api/ordens/:id/anexos
func (ctl *NoteController) Attach(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req AttachmentRequest
	if !bindJSON(c, &req) {
		return
	}

	file, err := utils.DecodeAttachment(req.FileName, req.FileData)
	if err != nil {
		if fileErr, ok := err.(*utils.FileUploadError); ok {
			respondError(c, apperrors.Validation(fileErr.Code, fileErr.Message))
			return
		}
		respondError(c, apperrors.Validation("INVALID_FILE", err.Error()))
		return
	}

	note, err := ctl.orders.AddAttachment(c.Request.Context(), a, c.Param("id"), req.Author, file)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, note)
}

package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
)

// UserController serves login, logout and account management
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"senha" binding:"required"`
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Name         string      `json:"nome" binding:"required"`
	Email        string      `json:"email" binding:"required,email"`
	Password     string      `json:"senha" binding:"required"`
	Role         models.Role `json:"perfil" binding:"required"`
	Registration string      `json:"matricula"`
	CPF          string      `json:"cpf"`
	Branch       string      `json:"filial"`
	JobTitle     string      `json:"cargo"`
	CostCenter   string      `json:"centroDeCusto"`
}

// UpdateUserRequest represents the request body for editing an account
type UpdateUserRequest struct {
	Name         string      `json:"nome" binding:"required"`
	Email        string      `json:"email" binding:"required,email"`
	Role         models.Role `json:"perfil" binding:"required"`
	Registration string      `json:"matricula"`
	CPF          string      `json:"cpf"`
	Branch       string      `json:"filial"`
	JobTitle     string      `json:"cargo"`
	CostCenter   string      `json:"centroDeCusto"`
}

// Login handles POST /api/login
func (ctl *UserController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctl.users.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Logout handles POST /api/logout
func (ctl *UserController) Logout(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctl.users.Logout(a)
	respondMessage(c, "Logout realizado com sucesso.")
}

// Register handles POST /api/register
func (ctl *UserController) Register(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ctl.users.Register(c.Request.Context(), a, services.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		Registration: req.Registration,
		CPF:          req.CPF,
		Branch:       req.Branch,
		JobTitle:     req.JobTitle,
		CostCenter:   req.CostCenter,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// List handles GET /api/usuarios?query=
func (ctl *UserController) List(c *gin.Context) {
	users, err := ctl.users.List(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

// Get handles GET /api/usuarios/:id
func (ctl *UserController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := ctl.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// Me handles GET /api/usuarios/me
func (ctl *UserController) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	user, err := ctl.users.Get(c.Request.Context(), a.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// Update handles PUT /api/usuarios/:id
func (ctl *UserController) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ctl.users.Update(c.Request.Context(), a, id, services.UpdateUserInput{
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.Role,
		Registration: req.Registration,
		CPF:          req.CPF,
		Branch:       req.Branch,
		JobTitle:     req.JobTitle,
		CostCenter:   req.CostCenter,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ChangePassword handles PUT /api/usuarios/:id/password
func (ctl *UserController) ChangePassword(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := ctl.users.ChangePassword(c.Request.Context(), a, id, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Senha alterada com sucesso.")
}

// SetAccessRules handles PUT /api/usuarios/:id/regras-acesso
func (ctl *UserController) SetAccessRules(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rules json.RawMessage `json:"regras" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := ctl.users.SetAccessRules(c.Request.Context(), a, id, req.Rules)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// Delete handles DELETE /api/usuarios/:id
func (ctl *UserController) Delete(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.users.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Usuário excluído com sucesso.")
}

// SetStatus handles PUT /api/usuarios/:id/status
func (ctl *UserController) SetStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.UserStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := ctl.users.SetStatus(c.Request.Context(), a, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ForceLogout handles POST /api/usuarios/logout-force/:id
func (ctl *UserController) ForceLogout(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.users.ForceLogout(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Logout forçado com sucesso.")
}

// BulkAction handles PUT /api/usuarios/bulk-actions
func (ctl *UserController) BulkAction(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		UserIDs []uint `json:"userIds" binding:"required"`
		Action  string `json:"action" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	affected, err := ctl.users.BulkAction(c.Request.Context(), a, req.UserIDs, req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"afetados": affected})
}

// UpdatePhoto handles PUT /api/usuarios/me/foto
func (ctl *UserController) UpdatePhoto(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		Photo string `json:"foto_perfil"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.users.UpdatePhoto(c.Request.Context(), a, req.Photo); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Foto de perfil atualizada.")
}

// UpdateTheme handles PUT /api/usuarios/me/tema
func (ctl *UserController) UpdateTheme(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req struct {
		Theme string `json:"tema" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := ctl.users.UpdateTheme(c.Request.Context(), a, req.Theme); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Tema atualizado.")
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// Bulk actions accepted by BulkAction
const (
	BulkBlock       = "block"
	BulkForceLogout = "force_logout"
)

// UserService manages staff accounts and sessions
type UserService struct {
	base
	tokens       *TokenIssuer
	notifier     PasswordNotifier
	primaryAdmin string
}

func NewUserService(db *gorm.DB, tokens *TokenIssuer, notifier PasswordNotifier, primaryAdminEmail string, opts Options) *UserService {
	b := newBase(db, opts)
	if notifier == nil {
		notifier = LogNotifier{Logger: b.Logger}
	}
	return &UserService{
		base:         b,
		tokens:       tokens,
		notifier:     notifier,
		primaryAdmin: strings.ToLower(strings.TrimSpace(primaryAdminEmail)),
	}
}

// LoginResult is returned to the client after a successful login
type LoginResult struct {
	Token    string      `json:"token"`
	Name     string      `json:"nome"`
	Role     models.Role `json:"perfil"`
	DriverID *uint       `json:"motoristaId"`
}

// RegisterInput carries the fields of a new account
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         models.Role
	Registration string
	CPF          string
	Branch       string
	JobTitle     string
	CostCenter   string
}

// UpdateUserInput carries the editable profile fields
type UpdateUserInput struct {
	Name         string
	Email        string
	Role         models.Role
	Registration string
	CPF          string
	Branch       string
	JobTitle     string
	CostCenter   string
}

// Login checks the credentials and issues a session token.
// Both successful and failed attempts are audited.
func (s *UserService) Login(ctx context.Context, email, password, clientIP string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.Validation("VALIDATION_ERROR", "Email e senha são obrigatórios.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if isNotFound(err) {
		s.loginFailed(email, clientIP, "usuário não encontrado")
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, readFailure("Erro interno no servidor.", err)
	}
	if user.Status == models.UserBlocked {
		s.loginFailed(email, clientIP, "usuário bloqueado")
		return nil, apperrors.Authorization("USER_BLOCKED", "Este usuário está bloqueado. Contate o administrador.")
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.loginFailed(email, clientIP, "senha incorreta")
		return nil, invalidCredentials()
	}

	var driverID *uint
	var driver models.Driver
	err = s.db.WithContext(ctx).Where("email = ?", user.Email).Take(&driver).Error
	switch {
	case err == nil:
		driverID = &driver.ID
	case !isNotFound(err):
		return nil, readFailure("Erro interno no servidor.", err)
	}

	token, err := s.tokens.Issue(&user, driverID)
	if err != nil {
		return nil, apperrors.Persistence("Erro interno no servidor.", err)
	}

	s.record(Actor{UserID: user.ID, Name: user.Name}, ActionLoginSuccess,
		fmt.Sprintf("Login bem-sucedido. IP: %s", clientIP))
	return &LoginResult{Token: token, Name: user.Name, Role: user.Role, DriverID: driverID}, nil
}

func (s *UserService) loginFailed(email, clientIP, reason string) {
	s.Audit.Record(AuditEntry{
		UserName: fmt.Sprintf("IP: %s", clientIP),
		Action:   ActionLoginFailure,
		Details:  fmt.Sprintf("Tentativa de login falhou para %s (%s).", email, reason),
	})
}

func invalidCredentials() error {
	return apperrors.Authentication("INVALID_CREDENTIALS", "Usuário ou senha inválidos.")
}

// Logout records the end of a session. Tokens are stateless; the client discards it.
func (s *UserService) Logout(actor Actor) {
	s.record(actor, ActionLogout, "Logout realizado.")
}

// SessionUser is consulted by the auth gate on every request
func (s *UserService) SessionUser(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()
	return s.find(ctx, s.db, id)
}

// Register creates an account. The general administrator role cannot be assigned here.
func (s *UserService) Register(ctx context.Context, actor Actor, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, apperrors.Validation("VALIDATION_ERROR", "Nome, email, senha e perfil são obrigatórios.")
	}
	if in.Role == models.RoleGeneralAdmin {
		return nil, apperrors.Authorization("FORBIDDEN_ROLE", "Não é permitido criar um usuário Administrador Geral.")
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation("INVALID_ROLE", "Perfil inválido.")
	}
	if len(in.Password) < minPasswordLength {
		return nil, passwordTooShort()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Persistence("Erro ao registrar usuário.", err)
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	user := models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       models.UserActive,
		Registration: in.Registration,
		CPF:          in.CPF,
		Branch:       in.Branch,
		JobTitle:     in.JobTitle,
		CostCenter:   in.CostCenter,
		Theme:        "light",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateEmail()
		}
		return nil, writeFailure("Erro ao registrar usuário.", err)
	}

	s.record(actor, ActionUserCreated, fmt.Sprintf("Usuário '%s' (%s) criado com perfil '%s'.", user.Name, user.Email, user.Role))
	return &user, nil
}

// EnsurePrimaryAdmin creates the general administrator account if it does not exist
func (s *UserService) EnsurePrimaryAdmin(ctx context.Context, name, password string) (*models.User, bool, error) {
	if s.primaryAdmin == "" || len(password) < minPasswordLength {
		return nil, false, apperrors.Validation("VALIDATION_ERROR", "Email do administrador e senha (mínimo 6 caracteres) são obrigatórios.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", s.primaryAdmin).Take(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !isNotFound(err) {
		return nil, false, readFailure("Falha ao buscar usuário.", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, false, apperrors.Persistence("Erro ao registrar usuário.", err)
	}
	user := models.User{
		Name:         name,
		Email:        s.primaryAdmin,
		PasswordHash: hash,
		Role:         models.RoleGeneralAdmin,
		Status:       models.UserActive,
		Theme:        "light",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, writeFailure("Erro ao registrar usuário.", err)
	}
	s.record(Actor{Name: SystemAuthor}, ActionUserCreated, fmt.Sprintf("Administrador Geral '%s' criado.", user.Email))
	return &user, true, nil
}

// List searches accounts by name or CPF
func (s *UserService) List(ctx context.Context, query string) ([]models.User, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.User{})
	if strings.TrimSpace(query) != "" {
		term := likePattern(query)
		q = q.Where("nome LIKE ? OR cpf LIKE ?", term, term)
	}
	var users []models.User
	if err := q.Order("nome ASC").Find(&users).Error; err != nil {
		return nil, readFailure("Falha ao buscar usuários.", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()
	return s.find(ctx, s.db, id)
}

// Update edits a profile. Only the general administrator may edit the
// organizational fields; others change name, email and role.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, in UpdateUserInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" || in.Email == "" || in.Role == "" {
		return nil, apperrors.Validation("VALIDATION_ERROR", "Nome, email e perfil são obrigatórios.")
	}
	if in.Role == models.RoleGeneralAdmin {
		return nil, apperrors.Authorization("FORBIDDEN_ROLE", "Não é permitido promover um usuário a Administrador Geral.")
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation("INVALID_ROLE", "Perfil inválido.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if s.isPrimaryAdmin(user) {
			return primaryAdminProtected()
		}

		changes := map[string]any{
			"nome":   strings.TrimSpace(in.Name),
			"email":  in.Email,
			"perfil": in.Role,
		}
		if actor.Role == models.RoleGeneralAdmin {
			changes["matricula"] = in.Registration
			changes["cpf"] = in.CPF
			changes["filial"] = in.Branch
			changes["cargo"] = in.JobTitle
			changes["centro_de_custo"] = in.CostCenter
		}
		if err := tx.Model(user).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Take(user, id).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateEmail()
		}
		return nil, writeFailure("Erro ao atualizar usuário.", err)
	}

	s.record(actor, ActionUserUpdated, fmt.Sprintf("Dados do usuário '%s' (ID: %d) atualizados.", user.Name, user.ID))
	return user, nil
}

// ChangePassword sets a new password and notifies the account owner
func (s *UserService) ChangePassword(ctx context.Context, actor Actor, id uint, password string) error {
	if len(password) < minPasswordLength {
		return passwordTooShort()
	}
	hash, err := HashPassword(password)
	if err != nil {
		return apperrors.Persistence("Erro ao alterar a senha.", err)
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	user, err := s.find(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("senha", hash).Error; err != nil {
		return writeFailure("Erro ao alterar a senha.", err)
	}

	s.notifier.PasswordChanged(ctx, user)
	s.record(actor, ActionUserPasswordChanged, fmt.Sprintf("Senha do usuário '%s' (ID: %d) alterada.", user.Name, user.ID))
	return nil
}

// SetAccessRules replaces the per-screen access rules of an account
func (s *UserService) SetAccessRules(ctx context.Context, actor Actor, id uint, rules json.RawMessage) (*models.User, error) {
	if len(rules) == 0 || !json.Valid(rules) {
		return nil, apperrors.Validation("VALIDATION_ERROR", "Regras de acesso inválidas.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	user, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if s.isPrimaryAdmin(user) {
		return nil, primaryAdminProtected()
	}
	if err := s.db.WithContext(ctx).Model(user).Update("regras_acesso", datatypes.JSON(rules)).Error; err != nil {
		return nil, writeFailure("Erro ao salvar regras de acesso.", err)
	}
	user.AccessRules = datatypes.JSON(rules)

	s.record(actor, ActionUserRulesChanged, fmt.Sprintf("Regras de acesso do usuário '%s' (ID: %d) alteradas.", user.Name, user.ID))
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	user, err := s.find(ctx, s.db, id)
	if err != nil {
		return err
	}
	if s.isPrimaryAdmin(user) {
		return apperrors.Authorization("PRIMARY_ADMIN_PROTECTED", "O Administrador Geral não pode ser excluído.")
	}
	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return writeFailure("Erro ao excluir usuário.", err)
	}

	s.record(actor, ActionUserDeleted, fmt.Sprintf("Usuário '%s' (%s) excluído.", user.Name, user.Email))
	return nil
}

// SetStatus blocks or unblocks an account
func (s *UserService) SetStatus(ctx context.Context, actor Actor, id uint, status models.UserStatus) (*models.User, error) {
	if status != models.UserActive && status != models.UserBlocked {
		return nil, apperrors.Validation("INVALID_STATUS", "Status inválido. Use 'ativo' ou 'bloqueado'.")
	}
	if id == actor.UserID {
		return nil, apperrors.Authorization("SELF_STATUS_CHANGE", "Você não pode alterar o seu próprio status.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	user, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if s.isPrimaryAdmin(user) {
		return nil, apperrors.Authorization("PRIMARY_ADMIN_PROTECTED", "O status do Administrador Geral não pode ser alterado.")
	}
	if actor.Role == models.RoleAdmin && (user.Role == models.RoleAdmin || user.Role == models.RoleGeneralAdmin) {
		return nil, apperrors.Authorization("FORBIDDEN", "Administradores não podem alterar o status de outros administradores.")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("status", status).Error; err != nil {
		return nil, writeFailure("Erro ao alterar status do usuário.", err)
	}
	user.Status = status

	s.record(actor, ActionUserStatusChanged, fmt.Sprintf("Status do usuário '%s' (ID: %d) alterado para '%s'.", user.Name, user.ID, status))
	return user, nil
}

// ForceLogout invalidates every token issued to the user before now.
// Tokens issued by a later login carry the new session version.
func (s *UserService) ForceLogout(ctx context.Context, actor Actor, id uint) error {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	user, err := s.find(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(s.revocation()).Error; err != nil {
		return writeFailure("Erro ao forçar logout.", err)
	}

	s.record(actor, ActionForcedLogout, fmt.Sprintf("Logout forçado para o usuário '%s' (ID: %d).", user.Name, user.ID))
	return nil
}

func (s *UserService) revocation() map[string]any {
	return map[string]any{
		"last_logout_at": s.Now(),
		"versao_sessao":  gorm.Expr("versao_sessao + 1"),
	}
}

// BulkAction blocks or force-logs-out several accounts at once. The acting
// user and the primary administrator are never blocked.
func (s *UserService) BulkAction(ctx context.Context, actor Actor, ids []uint, action string) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.Validation("VALIDATION_ERROR", "Nenhum usuário selecionado.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids)
	var res *gorm.DB
	var auditAction string
	switch action {
	case BulkBlock:
		res = q.Where("id <> ? AND email <> ?", actor.UserID, s.primaryAdmin).Update("status", models.UserBlocked)
		auditAction = ActionBulkBlock
	case BulkForceLogout:
		res = q.Updates(s.revocation())
		auditAction = ActionBulkForcedLogout
	default:
		return 0, apperrors.Validation("INVALID_ACTION", "Ação inválida. Use 'block' ou 'force_logout'.")
	}
	if res.Error != nil {
		return 0, writeFailure("Erro ao executar ação em massa.", res.Error)
	}

	s.record(actor, auditAction, fmt.Sprintf("Ação '%s' aplicada a %d usuário(s): %v", action, res.RowsAffected, ids))
	return res.RowsAffected, nil
}

// UpdatePhoto stores the profile photo of the acting user
func (s *UserService) UpdatePhoto(ctx context.Context, actor Actor, photo string) error {
	if err := utils.ValidateProfilePhoto(photo); err != nil {
		return uploadFailure(err)
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.UserID).Update("foto_perfil", photo)
	if res.Error != nil {
		return writeFailure("Erro ao atualizar a foto.", res.Error)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}

// UpdateTheme switches the acting user's UI theme
func (s *UserService) UpdateTheme(ctx context.Context, actor Actor, theme string) error {
	if theme != "light" && theme != "dark" {
		return apperrors.Validation("INVALID_THEME", "Tema inválido. Use 'light' ou 'dark'.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.UserID).Update("tema", theme)
	if res.Error != nil {
		return writeFailure("Erro ao atualizar o tema.", res.Error)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}

func (s *UserService) find(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Take(&user, id).Error
	if isNotFound(err) {
		return nil, userNotFound()
	}
	if err != nil {
		return nil, readFailure("Falha ao buscar usuário.", err)
	}
	return &user, nil
}

func (s *UserService) isPrimaryAdmin(user *models.User) bool {
	return s.primaryAdmin != "" && strings.EqualFold(user.Email, s.primaryAdmin)
}

func userNotFound() error {
	return apperrors.NotFound("USER_NOT_FOUND", "Usuário não encontrado.")
}

func duplicateEmail() error {
	return apperrors.Conflict("EMAIL_IN_USE", "Este email já está cadastrado.")
}

func passwordTooShort() error {
	return apperrors.Validation("PASSWORD_TOO_SHORT",
		fmt.Sprintf("A senha deve ter no mínimo %d caracteres.", minPasswordLength))
}

func primaryAdminProtected() error {
	return apperrors.Authorization("PRIMARY_ADMIN_PROTECTED", "O Administrador Geral não pode ser modificado.")
}

func uploadFailure(err error) error {
	if fileErr, ok := err.(*utils.FileUploadError); ok {
		return apperrors.Validation(fileErr.Code, fileErr.Message)
	}
	return apperrors.Validation("INVALID_FILE", err.Error())
}

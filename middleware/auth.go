package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
)

const (
	actorKey  = "actor"
	claimsKey = "validated_claims"
)

// AuthConfig holds what is needed to validate session tokens
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// SessionStore resolves the account behind a token on every request
type SessionStore interface {
	SessionUser(ctx context.Context, id uint) (*models.User, error)
}

// CustomClaims contains the application claims of a session token.
type CustomClaims struct {
	Role     models.Role `json:"perfil"`
	DriverID *uint       `json:"motoristaId,omitempty"`
	Version  int         `json:"versao"`
}

// Validate rejects tokens carrying a profile outside the known roles.
func (c *CustomClaims) Validate(ctx context.Context) error {
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}

// NewValidator builds the HS256 validator for session tokens
func NewValidator(cfg AuthConfig) (*validator.Validator, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	key := []byte(cfg.Secret)

	return validator.New(
		func(context.Context) (interface{}, error) { return key, nil },
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// EnsureValidToken is a middleware that checks the bearer token and the
// current state of the account it belongs to. A token issued before the
// account's last forced logout carries an older session version and is rejected.
func EnsureValidToken(cfg AuthConfig, sessions SessionStore) gin.HandlerFunc {
	jwtValidator, err := NewValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	return func(c *gin.Context) {
		token, err := jwtmiddleware.AuthHeaderTokenExtractor(c.Request)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Cabeçalho de autorização inválido.")
			return
		}
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Token de acesso não fornecido.")
			return
		}

		result, err := jwtValidator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			log.Printf("Encountered error while validating JWT: %v", err)
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token inválido ou expirado.")
			return
		}
		claims := result.(*validator.ValidatedClaims)

		userID, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token inválido ou expirado.")
			return
		}

		user, err := sessions.SessionUser(c.Request.Context(), uint(userID))
		if err != nil {
			if apperrors.IsKind(err, apperrors.KindNotFound) {
				abortWithError(c, http.StatusUnauthorized, "USER_NOT_FOUND", "Usuário da sessão não existe mais.")
				return
			}
			appErr := apperrors.As(err)
			abortWithError(c, appErr.HTTPStatus(), appErr.Code, appErr.Message)
			return
		}
		if user.Status == models.UserBlocked {
			abortWithError(c, http.StatusUnauthorized, "USER_BLOCKED", "Este usuário está bloqueado.")
			return
		}
		custom := claims.CustomClaims.(*CustomClaims)
		if custom.Version != user.SessionVersion {
			abortWithError(c, http.StatusUnauthorized, "SESSION_REVOKED", "Sua sessão foi encerrada remotamente. Faça login novamente.")
			return
		}

		SetActor(c, services.Actor{
			UserID:   user.ID,
			Name:     user.Name,
			Role:     user.Role,
			DriverID: custom.DriverID,
		})
		c.Set(claimsKey, claims)

		c.Next()
	}
}

// SetActor stores the authenticated user in the Gin context
func SetActor(c *gin.Context, actor services.Actor) {
	c.Set(actorKey, actor)
}

// GetActor extracts the authenticated user from the Gin context
func GetActor(c *gin.Context) (services.Actor, error) {
	value, exists := c.Get(actorKey)
	if !exists {
		return services.Actor{}, &AuthError{Code: "MISSING_ACTOR", Message: "Usuário autenticado não encontrado no contexto."}
	}

	actor, ok := value.(services.Actor)
	if !ok {
		return services.Actor{}, &AuthError{Code: "INVALID_ACTOR", Message: "Usuário autenticado em formato inesperado."}
	}

	return actor, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// RequireRoles is a middleware that lets through only the given roles
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Autenticação necessária.")
			return
		}
		if !allowed[actor.Role] {
			abortWithError(c, http.StatusForbidden, "INSUFFICIENT_ROLE", "Seu perfil não tem permissão para acessar este recurso.")
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

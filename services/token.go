package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/guincho-oliveira/crm-api/models"
	"golang.org/x/crypto/bcrypt"
)

// TokenSettings configures session token issuance
type TokenSettings struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// SessionClaims is the payload of a session token
type SessionClaims struct {
	jwt.RegisteredClaims
	Role     models.Role `json:"perfil"`
	DriverID *uint       `json:"motoristaId,omitempty"`
	Version  int         `json:"versao"`
}

// TokenIssuer signs HS256 session tokens
type TokenIssuer struct {
	settings TokenSettings
	now      Clock
}

func NewTokenIssuer(settings TokenSettings, now Clock) *TokenIssuer {
	if now == nil {
		now = SystemClock
	}
	return &TokenIssuer{settings: settings, now: now}
}

// Issue signs a token for the user. The subject is the user id.
func (i *TokenIssuer) Issue(user *models.User, driverID *uint) (string, error) {
	now := i.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    i.settings.Issuer,
			Audience:  jwt.ClaimStrings{i.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.settings.TTL)),
		},
		Role:     user.Role,
		DriverID: driverID,
		Version:  user.SessionVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.settings.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

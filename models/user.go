package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserStatus is the account state checked at login
type UserStatus string

const (
	UserActive  UserStatus = "ativo"
	UserBlocked UserStatus = "bloqueado"
)

// User represents a staff account of the CRM. SessionVersion is bumped by
// every forced logout; tokens carrying an older value are rejected.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"column:nome;not null" json:"nome"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"column:senha;not null" json:"-"`
	Role           Role           `gorm:"column:perfil;not null" json:"perfil"`
	Status         UserStatus     `gorm:"not null;default:'ativo'" json:"status"`
	Registration   string         `gorm:"column:matricula" json:"matricula"`
	CPF            string         `gorm:"column:cpf;index" json:"cpf"`
	Branch         string         `gorm:"column:filial" json:"filial"`
	JobTitle       string         `gorm:"column:cargo" json:"cargo"`
	CostCenter     string         `gorm:"column:centro_de_custo" json:"centroDeCusto"`
	ProfilePhoto   string         `gorm:"column:foto_perfil;type:text" json:"foto_perfil"`
	Theme          string         `gorm:"column:tema;not null;default:'light'" json:"tema"`
	AccessRules    datatypes.JSON `gorm:"column:regras_acesso" json:"regras_acesso"`
	LastLogoutAt   *time.Time     `gorm:"column:last_logout_at" json:"-"`
	SessionVersion int            `gorm:"column:versao_sessao;not null;default:0" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "usuarios"
}

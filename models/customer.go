package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents a client requesting towing services
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"column:nome;not null;index" json:"nome"`
	Phone     string         `gorm:"column:telefone" json:"telefone"`
	Email     string         `json:"email"`
	Address   string         `gorm:"column:endereco" json:"endereco"`
	Document  string         `gorm:"column:cpf_cnpj;index" json:"cpf_cnpj"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "clientes"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Driver represents a tow-truck driver
type Driver struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"column:nome;not null;index" json:"nome"`
	LicenseNumber   string         `gorm:"column:cnh_numero;index" json:"cnh_numero"`
	LicenseCategory string         `gorm:"column:categoria_cnh" json:"categoria_cnh"`
	Phone           string         `gorm:"column:telefone" json:"telefone"`
	Email           string         `gorm:"index" json:"email"` // links the driver to a user account at login
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Driver model
func (Driver) TableName() string {
	return "motoristas"
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Vehicle represents a tow truck of the fleet
type Vehicle struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Plate     string         `gorm:"column:placa;not null;index" json:"placa"`
	Model     string         `gorm:"column:modelo" json:"modelo"`
	Make      string         `gorm:"column:marca" json:"marca"`
	Year      int            `gorm:"column:ano" json:"ano"`
	Status    string         `gorm:"index" json:"status"`
	DriverID  *uint          `gorm:"column:motorista_id;index" json:"motorista_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Vehicle model
func (Vehicle) TableName() string {
	return "veiculos"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceOrder represents a towing engagement ("ordem de serviço")
type ServiceOrder struct {
	ID          string          `gorm:"primaryKey;size:16" json:"id"` // MMYY-NNNN
	CustomerID  uint            `gorm:"column:cliente_id;not null;index" json:"cliente_id"`
	Customer    *Customer       `gorm:"foreignKey:CustomerID" json:"cliente,omitempty"`
	DriverID    uint            `gorm:"column:motorista_id;not null;index" json:"motorista_id"`
	Driver      *Driver         `gorm:"foreignKey:DriverID" json:"motorista,omitempty"`
	VehicleID   uint            `gorm:"column:veiculo_id;not null;index" json:"veiculo_id"`
	Vehicle     *Vehicle        `gorm:"foreignKey:VehicleID" json:"veiculo,omitempty"`
	Location    string          `gorm:"column:local_atendimento;not null" json:"local_atendimento"`
	Description string          `gorm:"column:descricao;type:text;not null" json:"descricao"`
	ScheduledAt time.Time       `gorm:"column:data_hora;not null;index" json:"data_hora"`
	Value       decimal.Decimal `gorm:"column:valor;type:decimal(10,2);not null" json:"valor"`
	Status      OrderStatus     `gorm:"size:32;not null;index" json:"status"`
	ResolvedAt  *time.Time      `gorm:"column:data_resolucao;index" json:"data_resolucao"`
	AttendantID uint            `gorm:"column:atendente" json:"atendente"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the ServiceOrder model
func (ServiceOrder) TableName() string {
	return "ordens_servico"
}

// OrderSequence is the per-period counter behind order identifiers
type OrderSequence struct {
	Period     string `gorm:"column:periodo;primaryKey;size:4"`
	LastNumber int    `gorm:"column:ultimo_numero;not null"`
}

// TableName specifies the table name for the OrderSequence model
func (OrderSequence) TableName() string {
	return "sequencias_os"
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind is the direction of a financial entry
type LedgerKind string

const (
	LedgerRevenue LedgerKind = "Receita"
	LedgerExpense LedgerKind = "Despesa"
)

// Valid reports whether k is a known kind
func (k LedgerKind) Valid() bool {
	return k == LedgerRevenue || k == LedgerExpense
}

// LedgerEntry is a financial transaction, optionally generated by an order
type LedgerEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Kind        LedgerKind      `gorm:"column:tipo;size:16;not null;index" json:"tipo"`
	Description string          `gorm:"column:descricao" json:"descricao"`
	Amount      decimal.Decimal `gorm:"column:valor;type:decimal(10,2);not null" json:"valor"`
	Date        time.Time       `gorm:"column:data;not null;index" json:"data"`
	OrderID     *string         `gorm:"column:os_id;size:16;index" json:"os_id"`
	DriverID    *uint           `gorm:"column:motorista_id;index" json:"motorista_id"`
	CategoryID  *uint           `gorm:"column:categoria_id" json:"categoria_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the LedgerEntry model
func (LedgerEntry) TableName() string {
	return "financeiro"
}

// FinancialCategory groups ledger entries for reporting
type FinancialCategory struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"column:nome;not null" json:"nome"`
	Kind         LedgerKind `gorm:"column:tipo;size:16;not null" json:"tipo"`
	OrderRevenue bool       `gorm:"column:receita_os;not null;default:false" json:"receita_os"` // used for automatic order revenue
}

// TableName specifies the table name for the FinancialCategory model
func (FinancialCategory) TableName() string {
	return "categorias_financeiras"
}

// Setting is a key/value business parameter
type Setting struct {
	Key   string `gorm:"column:chave;primaryKey;size:64" json:"chave"`
	Value string `gorm:"column:valor;not null" json:"valor"`
}

// TableName specifies the table name for the Setting model
func (Setting) TableName() string {
	return "configuracoes"
}

// SettingMonthlyProfitGoal holds the dashboard profit target
const SettingMonthlyProfitGoal = "meta_lucro_mensal"

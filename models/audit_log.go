package models

import "time"

// AuditLogEntry is an immutable record of a state-changing action
type AuditLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"column:usuario_id;index" json:"usuario_id"`
	UserName  string    `gorm:"column:usuario_nome" json:"usuario_nome"`
	Action    string    `gorm:"column:acao;size:64;not null;index" json:"acao"`
	Details   string    `gorm:"column:detalhes;type:text" json:"detalhes"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

// TableName specifies the table name for the AuditLogEntry model
func (AuditLogEntry) TableName() string {
	return "logs_sistema"
}

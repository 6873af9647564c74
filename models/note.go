package models

import "time"

// NoteKind distinguishes comments, system annotations and attachments
type NoteKind string

const (
	NoteComment    NoteKind = "comentario"
	NoteSystem     NoteKind = "sistema"
	NoteAttachment NoteKind = "anexo"
)

// Note is an append-only entry on an order's history
type Note struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrderID        string    `gorm:"column:os_id;size:16;not null;index" json:"os_id"`
	Author         string    `gorm:"column:autor;not null" json:"autor"`
	Text           string    `gorm:"column:nota;type:text;not null" json:"nota"`
	Kind           NoteKind  `gorm:"column:tipo;size:16;not null" json:"tipo"`
	AttachmentName *string   `gorm:"column:nome_anexo" json:"nome_anexo,omitempty"`
	AttachmentKey  *string   `gorm:"column:anexo_chave" json:"-"`
	AttachmentURL  *string   `gorm:"-" json:"url_anexo,omitempty"` // resolved from AttachmentKey
	CreatedAt      time.Time `gorm:"column:data_hora;not null;index" json:"data_hora"`
}

// TableName specifies the table name for the Note model
func (Note) TableName() string {
	return "notas_chamado"
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemAuthor signs notes written by the application itself
const SystemAuthor = "Sistema"

// LedgerService manages financial entries and categories
type LedgerService struct {
	base
}

func NewLedgerService(db *gorm.DB, opts Options) *LedgerService {
	return &LedgerService{base: newBase(db, opts)}
}

// LedgerInput carries the editable fields of an entry
type LedgerInput struct {
	Kind        models.LedgerKind
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	DriverID    *uint
	CategoryID  *uint
}

func (in LedgerInput) validate() error {
	if !in.Kind.Valid() {
		return apperrors.Validation("VALIDATION_ERROR", "Tipo deve ser 'Receita' ou 'Despesa'.")
	}
	if strings.TrimSpace(in.Description) == "" || in.Date.IsZero() {
		return apperrors.Validation("VALIDATION_ERROR", "Um ou mais campos obrigatórios estão faltando.")
	}
	if !in.Amount.IsPositive() {
		return apperrors.Validation("VALIDATION_ERROR", "O valor deve ser maior que zero.")
	}
	return nil
}

// LedgerFilter narrows the entry list. Bounds are inclusive dates.
type LedgerFilter struct {
	Kind models.LedgerKind
	From *time.Time
	To   *time.Time
}

// List returns entries most recent first
func (s *LedgerService) List(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if filter.Kind != "" {
		q = q.Where("tipo = ?", filter.Kind)
	}
	if filter.From != nil {
		q = q.Where("data >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("data < ?", filter.To.AddDate(0, 0, 1).UTC())
	}

	var entries []models.LedgerEntry
	if err := q.Order("data DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, readFailure("Falha ao buscar lançamentos.", err)
	}
	return entries, nil
}

// Create records a manual entry
func (s *LedgerService) Create(ctx context.Context, actor Actor, in LedgerInput) (*models.LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	entry := models.LedgerEntry{
		Kind:        in.Kind,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        in.Date.UTC(),
		DriverID:    in.DriverID,
		CategoryID:  in.CategoryID,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, writeFailure("Falha ao criar lançamento.", err)
	}

	s.record(actor, ActionLedgerCreated,
		fmt.Sprintf("Lançamento #%d (%s) de R$ %s criado: %s", entry.ID, entry.Kind, entry.Amount.StringFixed(2), entry.Description))
	return &entry, nil
}

// Update edits an entry. An entry generated by an order stays a revenue.
func (s *LedgerService) Update(ctx context.Context, actor Actor, id uint, in LedgerInput) (*models.LedgerEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var entry models.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEntry(tx, id, &entry); err != nil {
			return err
		}
		if entry.OrderID != nil && in.Kind != models.LedgerRevenue {
			return apperrors.Validation("ORDER_REVENUE_KIND",
				"Lançamentos gerados por OS devem permanecer como 'Receita'.")
		}

		entry.Kind = in.Kind
		entry.Description = strings.TrimSpace(in.Description)
		entry.Amount = in.Amount
		entry.Date = in.Date.UTC()
		entry.DriverID = in.DriverID
		entry.CategoryID = in.CategoryID
		return tx.Model(&entry).Select("tipo", "descricao", "valor", "data", "motorista_id", "categoria_id").Updates(&entry).Error
	})
	if err != nil {
		return nil, writeFailure("Falha ao atualizar lançamento.", err)
	}

	s.record(actor, ActionLedgerUpdated, fmt.Sprintf("Lançamento #%d atualizado.", id))
	return &entry, nil
}

// Delete removes an entry. If the entry was generated by an order, the order
// is moved to "Lançamento Excluído" and one system note is appended, in the
// same transaction.
func (s *LedgerService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var entry models.LedgerEntry
	var reversed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEntry(tx, id, &entry); err != nil {
			return err
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}
		if entry.OrderID == nil {
			return nil
		}

		res := tx.Model(&models.ServiceOrder{}).
			Where("id = ?", *entry.OrderID).
			Update("status", models.StatusLedgerEntryDeleted)
		if res.Error != nil {
			return res.Error
		}
		// The order may have been purged already
		if res.RowsAffected == 0 {
			return nil
		}
		reversed = true

		note := models.Note{
			OrderID: *entry.OrderID,
			Author:  SystemAuthor,
			Text: fmt.Sprintf("Lançamento de OS excluído - Financeiro dado baixa em %s.",
				s.Now().In(s.Location).Format("02/01/2006")),
			Kind: models.NoteSystem,
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		return writeFailure("Falha ao excluir lançamento.", err)
	}

	details := fmt.Sprintf("Lançamento #%d excluído.", id)
	if reversed {
		details = fmt.Sprintf("Lançamento #%d excluído. OS #%s marcada como '%s'.",
			id, *entry.OrderID, models.StatusLedgerEntryDeleted)
		s.Events.Publish(ctx, NewEvent(EventLedgerReversed, *entry.OrderID, s.Now(), map[string]any{
			"id":            *entry.OrderID,
			"lancamento_id": id,
			"valor":         entry.Amount.StringFixed(2),
		}))
	}
	s.record(actor, ActionLedgerDeleted, details)
	return nil
}

// Categories lists the financial categories grouped by kind
func (s *LedgerService) Categories(ctx context.Context) ([]models.FinancialCategory, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var categories []models.FinancialCategory
	if err := s.db.WithContext(ctx).Order("tipo").Order("nome").Find(&categories).Error; err != nil {
		return nil, readFailure("Falha ao buscar categorias.", err)
	}
	return categories, nil
}

// CreateCategory adds a category. Only the seeded category is flagged for order revenue.
func (s *LedgerService) CreateCategory(ctx context.Context, actor Actor, name string, kind models.LedgerKind) (*models.FinancialCategory, error) {
	if strings.TrimSpace(name) == "" || !kind.Valid() {
		return nil, apperrors.Validation("VALIDATION_ERROR", "Nome e tipo ('Receita' ou 'Despesa') são obrigatórios.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	category := models.FinancialCategory{Name: strings.TrimSpace(name), Kind: kind}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, writeFailure("Falha ao criar categoria.", err)
	}

	s.record(actor, ActionCategoryCreated, fmt.Sprintf("Categoria '%s' (%s) criada.", category.Name, category.Kind))
	return &category, nil
}

// SeedCategories inserts the default categories into an empty table
func SeedCategories(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.FinancialCategory{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	categories := models.DefaultCategories()
	return db.WithContext(ctx).Create(&categories).Error
}

func lockEntry(tx *gorm.DB, id uint, entry *models.LedgerEntry) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(entry, id).Error
	if isNotFound(err) {
		return apperrors.NotFound("ENTRY_NOT_FOUND", "Lançamento não encontrado.")
	}
	return err
}

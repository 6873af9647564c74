package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService owns the service order lifecycle
type OrderService struct {
	base
	allocator   OrderIDAllocator
	attachments AttachmentStore
}

func NewOrderService(db *gorm.DB, attachments AttachmentStore, opts Options) *OrderService {
	b := newBase(db, opts)
	if attachments == nil {
		attachments = NewMemoryAttachmentStore()
	}
	return &OrderService{
		base:        b,
		allocator:   NewOrderIDAllocator(b.Location),
		attachments: attachments,
	}
}

// CreateOrderInput carries the fields of a new service order
type CreateOrderInput struct {
	CustomerID  uint
	DriverID    uint
	VehicleID   uint
	Location    string
	Description string
	ScheduledAt time.Time
	Value       decimal.Decimal
}

func (in CreateOrderInput) validate() error {
	if in.CustomerID == 0 || in.DriverID == 0 || in.VehicleID == 0 ||
		strings.TrimSpace(in.Location) == "" || strings.TrimSpace(in.Description) == "" ||
		in.ScheduledAt.IsZero() {
		return apperrors.Validation("VALIDATION_ERROR", "Um ou mais campos obrigatórios estão faltando.")
	}
	if in.Value.IsNegative() {
		return apperrors.Validation("VALIDATION_ERROR", "O valor do serviço não pode ser negativo.")
	}
	return nil
}

// OrderFilter narrows the order list
type OrderFilter struct {
	Status     models.OrderStatus
	Query      string
	DriverID   *uint
	CreatedOn  string // YYYY-MM-DD, by scheduled date
	ResolvedOn string // YYYY-MM-DD, by resolution date
}

// Create allocates the next MMYY-NNNN id and stores the order as "Na Fila"
func (s *OrderService) Create(ctx context.Context, actor Actor, in CreateOrderInput) (*models.ServiceOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	if err := s.checkReferences(ctx, in); err != nil {
		return nil, err
	}

	order := models.ServiceOrder{
		CustomerID:  in.CustomerID,
		DriverID:    in.DriverID,
		VehicleID:   in.VehicleID,
		Location:    strings.TrimSpace(in.Location),
		Description: strings.TrimSpace(in.Description),
		ScheduledAt: in.ScheduledAt.UTC(),
		Value:       in.Value,
		Status:      models.StatusQueued,
		AttendantID: actor.UserID,
	}

	var err error
	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			id, err := s.allocator.Next(tx, s.Now())
			if err != nil {
				return err
			}
			order.ID = id
			return tx.Create(&order).Error
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
		s.Logger.Printf("order id conflict on attempt %d: %v", attempt, err)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("ORDER_ID_CONFLICT", "Não foi possível gerar um ID único para a OS. Tente novamente.")
		}
		return nil, writeFailure("Falha ao criar a ordem de serviço.", err)
	}

	s.record(actor, ActionOrderCreated,
		fmt.Sprintf("OS #%s criada. Descrição: %s", order.ID, truncate(order.Description, 50)))
	s.Events.Publish(ctx, NewEvent(EventOrderCreated, order.ID, s.Now(), map[string]any{
		"id":           order.ID,
		"cliente_id":   order.CustomerID,
		"motorista_id": order.DriverID,
		"valor":        order.Value.StringFixed(2),
	}))
	return &order, nil
}

func (s *OrderService) checkReferences(ctx context.Context, in CreateOrderInput) error {
	refs := []struct {
		model   any
		id      uint
		message string
	}{
		{&models.Customer{}, in.CustomerID, "Cliente não encontrado."},
		{&models.Driver{}, in.DriverID, "Motorista não encontrado."},
		{&models.Vehicle{}, in.VehicleID, "Veículo não encontrado."},
	}
	for _, ref := range refs {
		var count int64
		if err := s.db.WithContext(ctx).Model(ref.model).Where("id = ?", ref.id).Count(&count).Error; err != nil {
			return readFailure("Falha ao validar a ordem de serviço.", err)
		}
		if count == 0 {
			return apperrors.Validation("INVALID_REFERENCE", ref.message)
		}
	}
	return nil
}

// unscoped keeps soft-deleted customers, drivers and vehicles visible on the
// orders that reference them
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// Get loads an order with its customer, driver and vehicle
func (s *OrderService) Get(ctx context.Context, id string) (*models.ServiceOrder, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var order models.ServiceOrder
	err := s.db.WithContext(ctx).
		Preload("Customer", unscoped).Preload("Driver", unscoped).Preload("Vehicle", unscoped).
		Take(&order, "id = ?", id).Error
	if isNotFound(err) {
		return nil, orderNotFound()
	}
	if err != nil {
		return nil, readFailure("Falha ao buscar a ordem de serviço.", err)
	}
	return &order, nil
}

// List returns orders newest scheduled first
func (s *OrderService) List(ctx context.Context, filter OrderFilter) ([]models.ServiceOrder, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.ServiceOrder{}).
		Preload("Customer", unscoped).Preload("Driver", unscoped).Preload("Vehicle", unscoped)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DriverID != nil {
		q = q.Where("motorista_id = ?", *filter.DriverID)
	}
	if strings.TrimSpace(filter.Query) != "" {
		term := likePattern(filter.Query)
		q = q.Where("id LIKE ? OR descricao LIKE ? OR local_atendimento LIKE ?", term, term, term)
	}
	if filter.CreatedOn != "" {
		start, end, err := utils.DayRange(filter.CreatedOn, s.Location)
		if err != nil {
			return nil, apperrors.Validation("INVALID_DATE", "Data inválida. Use o formato AAAA-MM-DD.")
		}
		q = q.Where("data_hora >= ? AND data_hora < ?", start.UTC(), end.UTC())
	}
	if filter.ResolvedOn != "" {
		start, end, err := utils.DayRange(filter.ResolvedOn, s.Location)
		if err != nil {
			return nil, apperrors.Validation("INVALID_DATE", "Data inválida. Use o formato AAAA-MM-DD.")
		}
		q = q.Where("data_resolucao >= ? AND data_resolucao < ?", start.UTC(), end.UTC())
	}

	var orders []models.ServiceOrder
	if err := q.Order("data_hora DESC").Find(&orders).Error; err != nil {
		return nil, readFailure("Falha ao buscar ordens de serviço.", err)
	}
	return orders, nil
}

// ListByDriver returns the orders assigned to one driver
func (s *OrderService) ListByDriver(ctx context.Context, driverID uint) ([]models.ServiceOrder, error) {
	return s.List(ctx, OrderFilter{DriverID: &driverID})
}

// UpdateStatus moves an order along the lifecycle. Completing an order also
// records its resolution time and posts one revenue entry, all in one transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id string, target models.OrderStatus) (*models.ServiceOrder, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var current models.ServiceOrder
	err := s.db.WithContext(ctx).Take(&current, "id = ?", id).Error
	if isNotFound(err) {
		return nil, orderNotFound()
	}
	if err != nil {
		return nil, readFailure("Falha ao buscar a ordem de serviço.", err)
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, apperrors.InvalidTransition(string(current.Status), string(target))
	}

	var updated models.ServiceOrder
	var previous models.OrderStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, id, &updated); err != nil {
			return err
		}
		// Re-checked under the lock; another request may have moved it
		if !updated.Status.CanTransitionTo(target) {
			return apperrors.InvalidTransition(string(updated.Status), string(target))
		}
		previous = updated.Status

		now := s.Now()
		changes := map[string]any{"status": target}
		if target == models.StatusCompleted {
			changes["data_resolucao"] = now
		}
		if err := tx.Model(&updated).Updates(changes).Error; err != nil {
			return err
		}
		updated.Status = target

		if target == models.StatusCompleted {
			updated.ResolvedAt = &now
			return s.postRevenue(tx, &updated, now)
		}
		return nil
	})
	if err != nil {
		return nil, writeFailure("Falha no processo de atualização.", err)
	}

	s.record(actor, ActionOrderStatusChanged,
		fmt.Sprintf("Status da OS #%s alterado de '%s' para '%s'.", id, previous, target))
	eventType := EventOrderStatusChanged
	if target == models.StatusCompleted {
		eventType = EventOrderCompleted
	}
	s.Events.Publish(ctx, NewEvent(eventType, id, s.Now(), map[string]any{
		"id":             id,
		"statusAnterior": previous,
		"status":         target,
	}))
	return &updated, nil
}

// postRevenue inserts the revenue entry for a completed order
func (s *OrderService) postRevenue(tx *gorm.DB, order *models.ServiceOrder, at time.Time) error {
	var category models.FinancialCategory
	var categoryID *uint
	err := tx.Where("receita_os = ?", true).Take(&category).Error
	switch {
	case err == nil:
		categoryID = &category.ID
	case !isNotFound(err):
		return err
	}

	orderID := order.ID
	driverID := order.DriverID
	entry := models.LedgerEntry{
		Kind:        models.LedgerRevenue,
		Description: fmt.Sprintf("Receita referente à OS #%s", order.ID),
		Amount:      order.Value,
		Date:        at,
		OrderID:     &orderID,
		DriverID:    &driverID,
		CategoryID:  categoryID,
	}
	return tx.Create(&entry).Error
}

// Reschedule sets a new future date and returns the order to "Agendado".
// It bypasses the transition table but never reopens a closed order.
func (s *OrderService) Reschedule(ctx context.Context, actor Actor, id string, when time.Time) (*models.ServiceOrder, error) {
	if when.IsZero() {
		return nil, apperrors.Validation("VALIDATION_ERROR", "A nova data e hora são obrigatórias.")
	}
	if !when.After(s.Now()) {
		return nil, apperrors.Validation("DATE_IN_PAST", "A data de reagendamento não pode ser no passado.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var order models.ServiceOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, id, &order); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return apperrors.Validation("ORDER_CLOSED",
				fmt.Sprintf("Não é possível reagendar uma OS com status '%s'.", order.Status))
		}
		order.Status = models.StatusScheduled
		order.ScheduledAt = when.UTC()
		return tx.Model(&order).Updates(map[string]any{
			"status":    order.Status,
			"data_hora": order.ScheduledAt,
		}).Error
	})
	if err != nil {
		return nil, writeFailure("Falha ao reagendar a ordem de serviço.", err)
	}

	s.record(actor, ActionOrderRescheduled,
		fmt.Sprintf("OS #%s reagendada para %s.", id, when.In(s.Location).Format("02/01/2006 15:04")))
	return &order, nil
}

// Purge removes an order and its notes. Stored attachment files are removed
// after commit on a best-effort basis.
func (s *OrderService) Purge(ctx context.Context, actor Actor, id string) error {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.ServiceOrder
		if err := lockOrder(tx, id, &order); err != nil {
			return err
		}
		if err := tx.Model(&models.Note{}).
			Where("os_id = ? AND anexo_chave IS NOT NULL", id).
			Pluck("anexo_chave", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("os_id = ?", id).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return writeFailure("Falha ao excluir a ordem de serviço.", err)
	}

	for _, key := range keys {
		if err := s.attachments.Delete(ctx, key); err != nil {
			s.Logger.Printf("failed to delete attachment %s of order %s: %v", key, id, err)
		}
	}

	s.record(actor, ActionOrderDeleted, fmt.Sprintf("OS #%s excluída permanentemente.", id))
	return nil
}

// AddNote appends a free-text comment to the order's timeline
func (s *OrderService) AddNote(ctx context.Context, actor Actor, id, author, text string) (*models.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("VALIDATION_ERROR", "O texto da nota é obrigatório.")
	}
	if strings.TrimSpace(author) == "" {
		author = actor.Name
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	if err := s.requireOrder(ctx, id); err != nil {
		return nil, err
	}

	note := models.Note{OrderID: id, Author: author, Text: text, Kind: models.NoteComment}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, writeFailure("Falha ao adicionar a nota.", err)
	}

	s.record(actor, ActionOrderNoteAdded,
		fmt.Sprintf("Nota adicionada à OS #%s: %s", id, truncate(text, 50)))
	return &note, nil
}

// AddAttachment stores the file and records it as an "anexo" note
func (s *OrderService) AddAttachment(ctx context.Context, actor Actor, id, author string, file *utils.Attachment) (*models.Note, error) {
	if strings.TrimSpace(author) == "" {
		author = actor.Name
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	if err := s.requireOrder(ctx, id); err != nil {
		return nil, err
	}

	key := NewAttachmentKey(id, file.Name)
	if err := s.attachments.Put(ctx, key, file.ContentType, file.Data); err != nil {
		return nil, apperrors.Persistence("Falha ao armazenar o anexo.", err)
	}

	name := file.Name
	note := models.Note{
		OrderID:        id,
		Author:         author,
		Text:           fmt.Sprintf("Anexo adicionado: %s", name),
		Kind:           models.NoteAttachment,
		AttachmentName: &name,
		AttachmentKey:  &key,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		if delErr := s.attachments.Delete(ctx, key); delErr != nil {
			s.Logger.Printf("failed to clean up attachment %s: %v", key, delErr)
		}
		return nil, writeFailure("Falha ao registrar o anexo.", err)
	}
	s.resolveURL(ctx, &note)

	s.record(actor, ActionOrderAttachment, fmt.Sprintf("Anexo '%s' adicionado à OS #%s.", name, id))
	return &note, nil
}

// ListNotes returns the timeline oldest first, with download links resolved
func (s *OrderService) ListNotes(ctx context.Context, id string) ([]models.Note, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	if err := s.requireOrder(ctx, id); err != nil {
		return nil, err
	}

	var notes []models.Note
	if err := s.db.WithContext(ctx).
		Where("os_id = ?", id).
		Order("data_hora ASC").Order("id ASC").
		Find(&notes).Error; err != nil {
		return nil, readFailure("Falha ao buscar as notas.", err)
	}
	for i := range notes {
		s.resolveURL(ctx, &notes[i])
	}
	return notes, nil
}

func (s *OrderService) resolveURL(ctx context.Context, note *models.Note) {
	if note.AttachmentKey == nil {
		return
	}
	url, err := s.attachments.URL(ctx, *note.AttachmentKey)
	if err != nil {
		s.Logger.Printf("failed to resolve attachment URL for %s: %v", *note.AttachmentKey, err)
		return
	}
	note.AttachmentURL = &url
}

func (s *OrderService) requireOrder(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ServiceOrder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return readFailure("Falha ao buscar a ordem de serviço.", err)
	}
	if count == 0 {
		return orderNotFound()
	}
	return nil
}

// lockOrder loads the order row FOR UPDATE; SQLite ignores the clause and
// relies on its single writer instead
func lockOrder(tx *gorm.DB, id string, order *models.ServiceOrder) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(order, "id = ?", id).Error
	if isNotFound(err) {
		return orderNotFound()
	}
	return err
}

func orderNotFound() error {
	return apperrors.NotFound("ORDER_NOT_FOUND", "Ordem de serviço não encontrada.")
}

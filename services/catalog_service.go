package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"gorm.io/gorm"
)

// catalogSpec describes one registry entity (customers, drivers, vehicles)
type catalogSpec[T any] struct {
	label         string
	notFoundCode  string
	order         string
	searchColumns []string
	filterColumns map[string]string // query parameter -> column
	created       string
	updated       string
	deleted       string
	validate      func(*T) error
	describe      func(*T) string
}

// Catalog provides CRUD for a registry entity
type Catalog[T any] struct {
	base
	spec catalogSpec[T]
}

// NewCustomerService manages the "clientes" registry
func NewCustomerService(db *gorm.DB, opts Options) *Catalog[models.Customer] {
	return &Catalog[models.Customer]{
		base: newBase(db, opts),
		spec: catalogSpec[models.Customer]{
			label:         "Cliente",
			notFoundCode:  "CUSTOMER_NOT_FOUND",
			order:         "nome ASC",
			searchColumns: []string{"nome", "cpf_cnpj", "telefone", "email"},
			created:       ActionCustomerCreated,
			updated:       ActionCustomerUpdated,
			deleted:       ActionCustomerDeleted,
			validate: func(c *models.Customer) error {
				return requireField(c.Name, "O nome do cliente é obrigatório.")
			},
			describe: func(c *models.Customer) string {
				return fmt.Sprintf("%s (ID: %d)", c.Name, c.ID)
			},
		},
	}
}

// NewDriverService manages the "motoristas" registry
func NewDriverService(db *gorm.DB, opts Options) *Catalog[models.Driver] {
	return &Catalog[models.Driver]{
		base: newBase(db, opts),
		spec: catalogSpec[models.Driver]{
			label:         "Motorista",
			notFoundCode:  "DRIVER_NOT_FOUND",
			order:         "nome ASC",
			searchColumns: []string{"nome", "cnh_numero", "telefone"},
			created:       ActionDriverCreated,
			updated:       ActionDriverUpdated,
			deleted:       ActionDriverDeleted,
			validate: func(d *models.Driver) error {
				return requireField(d.Name, "O nome do motorista é obrigatório.")
			},
			describe: func(d *models.Driver) string {
				return fmt.Sprintf("%s (ID: %d)", d.Name, d.ID)
			},
		},
	}
}

// NewVehicleService manages the "veiculos" registry
func NewVehicleService(db *gorm.DB, opts Options) *Catalog[models.Vehicle] {
	return &Catalog[models.Vehicle]{
		base: newBase(db, opts),
		spec: catalogSpec[models.Vehicle]{
			label:         "Veículo",
			notFoundCode:  "VEHICLE_NOT_FOUND",
			order:         "placa ASC",
			searchColumns: []string{"placa", "modelo", "marca"},
			filterColumns: map[string]string{"status": "status", "motorista_id": "motorista_id"},
			created:       ActionVehicleCreated,
			updated:       ActionVehicleUpdated,
			deleted:       ActionVehicleDeleted,
			validate: func(v *models.Vehicle) error {
				v.Plate = strings.ToUpper(strings.TrimSpace(v.Plate))
				return requireField(v.Plate, "A placa do veículo é obrigatória.")
			},
			describe: func(v *models.Vehicle) string {
				return fmt.Sprintf("%s %s (ID: %d)", v.Plate, v.Model, v.ID)
			},
		},
	}
}

func requireField(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.Validation("VALIDATION_ERROR", message)
	}
	return nil
}

// List searches the registry. Unknown filters are ignored.
func (c *Catalog[T]) List(ctx context.Context, query string, filters map[string]string) ([]T, error) {
	ctx, cancel := c.unit(ctx)
	defer cancel()

	q := c.db.WithContext(ctx).Model(new(T))
	if strings.TrimSpace(query) != "" && len(c.spec.searchColumns) > 0 {
		term := likePattern(query)
		clauses := make([]string, len(c.spec.searchColumns))
		args := make([]any, len(c.spec.searchColumns))
		for i, col := range c.spec.searchColumns {
			clauses[i] = col + " LIKE ?"
			args[i] = term
		}
		q = q.Where(strings.Join(clauses, " OR "), args...)
	}
	for param, value := range filters {
		if col, ok := c.spec.filterColumns[param]; ok && value != "" {
			q = q.Where(col+" = ?", value)
		}
	}

	var items []T
	if err := q.Order(c.spec.order).Find(&items).Error; err != nil {
		return nil, readFailure(fmt.Sprintf("Falha ao buscar registros de %s.", strings.ToLower(c.spec.label)), err)
	}
	return items, nil
}

func (c *Catalog[T]) Get(ctx context.Context, id uint) (*T, error) {
	ctx, cancel := c.unit(ctx)
	defer cancel()

	item := new(T)
	err := c.db.WithContext(ctx).Take(item, id).Error
	if isNotFound(err) {
		return nil, c.notFound()
	}
	if err != nil {
		return nil, readFailure("Falha ao buscar registro.", err)
	}
	return item, nil
}

func (c *Catalog[T]) Create(ctx context.Context, actor Actor, item *T) (*T, error) {
	if err := c.spec.validate(item); err != nil {
		return nil, err
	}

	ctx, cancel := c.unit(ctx)
	defer cancel()

	if err := c.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, writeFailure(fmt.Sprintf("Falha ao cadastrar %s.", strings.ToLower(c.spec.label)), err)
	}

	c.record(actor, c.spec.created, fmt.Sprintf("%s cadastrado: %s", c.spec.label, c.spec.describe(item)))
	return item, nil
}

// Update replaces every editable field of the record
func (c *Catalog[T]) Update(ctx context.Context, actor Actor, id uint, item *T) (*T, error) {
	if err := c.spec.validate(item); err != nil {
		return nil, err
	}

	ctx, cancel := c.unit(ctx)
	defer cancel()

	updated := new(T)
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(new(T)).Where("id = ?", id).
			Select("*").Omit("id", "created_at", "deleted_at").
			Updates(item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return c.notFound()
		}
		return tx.Take(updated, id).Error
	})
	if err != nil {
		return nil, writeFailure(fmt.Sprintf("Falha ao atualizar %s.", strings.ToLower(c.spec.label)), err)
	}

	c.record(actor, c.spec.updated, fmt.Sprintf("%s atualizado: %s", c.spec.label, c.spec.describe(updated)))
	return updated, nil
}

func (c *Catalog[T]) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx, cancel := c.unit(ctx)
	defer cancel()

	item := new(T)
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(item, id).Error; err != nil {
			if isNotFound(err) {
				return c.notFound()
			}
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return writeFailure(fmt.Sprintf("Falha ao excluir %s.", strings.ToLower(c.spec.label)), err)
	}

	c.record(actor, c.spec.deleted, fmt.Sprintf("%s excluído: %s", c.spec.label, c.spec.describe(item)))
	return nil
}

func (c *Catalog[T]) notFound() error {
	return apperrors.NotFound(c.spec.notFoundCode, fmt.Sprintf("%s não encontrado.", c.spec.label))
}

package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Catalog holds one customer, driver and vehicle an order can reference
type Catalog struct {
	Customer models.Customer
	Driver   models.Driver
	Vehicle  models.Vehicle
}

// SeedCatalog inserts a customer, a driver and a vehicle
func SeedCatalog(t *testing.T, db *gorm.DB) Catalog {
	t.Helper()

	c := Catalog{
		Customer: models.Customer{Name: "Transportadora Silva", Phone: "(11) 98888-0000", Document: "12.345.678/0001-90"},
		Driver:   models.Driver{Name: "João Motorista", LicenseNumber: "01234567890", LicenseCategory: "E", Email: "joao@guinchooliveira.com"},
	}
	require.NoError(t, db.Create(&c.Customer).Error)
	require.NoError(t, db.Create(&c.Driver).Error)

	c.Vehicle = models.Vehicle{Plate: "ABC1D23", Model: "Cargo 816", Make: "Ford", Year: 2020, Status: "disponivel", DriverID: &c.Driver.ID}
	require.NoError(t, db.Create(&c.Vehicle).Error)
	return c
}

// CreateOrder inserts an order directly with the given id and status
func CreateOrder(t *testing.T, db *gorm.DB, c Catalog, id string, status models.OrderStatus, value string) models.ServiceOrder {
	t.Helper()

	order := models.ServiceOrder{
		ID:          id,
		CustomerID:  c.Customer.ID,
		DriverID:    c.Driver.ID,
		VehicleID:   c.Vehicle.ID,
		Location:    "Rod. Anhanguera, km 30",
		Description: "Reboque de caminhão com pane elétrica",
		ScheduledAt: time.Date(2025, 3, 20, 13, 0, 0, 0, time.UTC),
		Value:       decimal.RequireFromString(value),
		Status:      status,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

// CreateUser inserts an active user with a bcrypt-hashed password
func CreateUser(t *testing.T, db *gorm.DB, name, email string, role models.Role, password string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.UserActive,
		Theme:        "light",
	}
	require.NoError(t, db.Create(&user).Error, fmt.Sprintf("create user %s", email))
	return user
}

// CountRows counts the rows of a model matching the condition
func CountRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()

	var count int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}

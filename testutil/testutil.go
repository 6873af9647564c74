package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/config"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSecret signs tokens in tests; production secrets come from JWT_SECRET or JWT_SECRET_FILE
const TestSecret = "test-secret-with-at-least-32-bytes!!"

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a migrated in-memory SQLite database seeded with the
// default financial categories. A single connection keeps every query on
// the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			fmt.Printf("warning: failed to close test database: %v\n", err)
		}
	})

	require.NoError(t, db.AutoMigrate(models.All()...))
	categories := models.DefaultCategories()
	require.NoError(t, db.Create(&categories).Error)
	return db
}

// FixedClock always returns t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SaoPaulo is the business timezone used by the scenarios
func SaoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

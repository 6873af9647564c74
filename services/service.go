package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"gorm.io/gorm"
)

// Clock returns the current time; tests replace it
type Clock func() time.Time

// SystemClock is the production clock. Times are kept in UTC in the database.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID   uint
	Name     string
	Role     models.Role
	DriverID *uint
}

// Options carries the collaborators shared by every service
type Options struct {
	Timeout  time.Duration
	Now      Clock
	Location *time.Location
	Audit    AuditLogger
	Events   EventPublisher
	Logger   *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = SystemClock
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Audit == nil {
		o.Audit = DiscardAuditLogger{}
	}
	if o.Events == nil {
		o.Events = NopPublisher{}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// base bundles the database handle with the shared options
type base struct {
	db *gorm.DB
	Options
}

func newBase(db *gorm.DB, opts Options) base {
	return base{db: db, Options: opts.withDefaults()}
}

// unit bounds one database unit of work
func (b base) unit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.Timeout)
}

func (b base) record(actor Actor, action, details string) {
	id := actor.UserID
	entry := AuditEntry{UserName: actor.Name, Action: action, Details: details}
	if id != 0 {
		entry.UserID = &id
	}
	b.Audit.Record(entry)
}

// readFailure classifies an error from a read-only unit of work.
// A timeout is retryable; anything else is a generic failure.
func readFailure(message string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable(message, err)
	}
	return apperrors.Persistence(message, err)
}

// writeFailure classifies an error from a mutating unit of work.
// The transaction has already been rolled back when this is called.
func writeFailure(message string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Persistence(message, err)
}

// isUniqueViolation works with both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// likePattern builds a %term% pattern for LIKE searches
func likePattern(term string) string {
	return "%" + strings.TrimSpace(term) + "%"
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

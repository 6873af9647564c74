package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/guincho-oliveira/crm-api/models"
	"gorm.io/gorm"
)

// Audit action codes, as shown in the log screen
const (
	ActionLoginSuccess        = "LOGIN_SUCESSO"
	ActionLoginFailure        = "LOGIN_FALHA"
	ActionLogout              = "LOGOUT"
	ActionForcedLogout        = "LOGOFF_FORCADO"
	ActionBulkForcedLogout    = "LOGOFF_MASSA_FORCADO"
	ActionBulkBlock           = "USUARIOS_BLOQUEIO_MASSA"
	ActionUserCreated         = "USUARIO_CRIADO"
	ActionUserUpdated         = "USUARIO_ATUALIZADO"
	ActionUserDeleted         = "USUARIO_EXCLUIDO"
	ActionUserStatusChanged   = "USUARIO_STATUS_ALTERADO"
	ActionUserPasswordChanged = "USUARIO_SENHA_ALTERADA"
	ActionUserRulesChanged    = "USUARIO_REGRAS_ALTERADAS"
	ActionCustomerCreated     = "CLIENTE_CRIADO"
	ActionCustomerUpdated     = "CLIENTE_ATUALIZADO"
	ActionCustomerDeleted     = "CLIENTE_EXCLUIDO"
	ActionDriverCreated       = "MOTORISTA_CRIADO"
	ActionDriverUpdated       = "MOTORISTA_ATUALIZADO"
	ActionDriverDeleted       = "MOTORISTA_EXCLUIDO"
	ActionVehicleCreated      = "VEICULO_CRIADO"
	ActionVehicleUpdated      = "VEICULO_ATUALIZADO"
	ActionVehicleDeleted      = "VEICULO_EXCLUIDO"
	ActionOrderCreated        = "OS_CRIADA"
	ActionOrderStatusChanged  = "OS_STATUS_ALTERADO"
	ActionOrderRescheduled    = "OS_REAGENDADA"
	ActionOrderDeleted        = "OS_EXCLUIDA"
	ActionOrderNoteAdded      = "OS_NOTA_ADICIONADA"
	ActionOrderAttachment     = "OS_ANEXO_ADICIONADO"
	ActionLedgerCreated       = "FINANCEIRO_CRIADO"
	ActionLedgerUpdated       = "FINANCEIRO_ATUALIZADO"
	ActionLedgerDeleted       = "FINANCEIRO_EXCLUIDO"
	ActionCategoryCreated     = "CATEGORIA_CRIADA"
)

// AuditEntry is one action to be appended to the audit log
type AuditEntry struct {
	UserID   *uint
	UserName string
	Action   string
	Details  string
}

// AuditLogger records state-changing actions.
//
// Delivery is at-most-once and never blocks or fails the caller: an entry
// that cannot be accepted or written is logged locally and silently dropped.
// Callers record only after their own unit of work has committed.
type AuditLogger interface {
	Record(entry AuditEntry)
}

// DiscardAuditLogger drops every entry
type DiscardAuditLogger struct{}

func (DiscardAuditLogger) Record(AuditEntry) {}

// SyncAuditLogger writes inline, swallowing failures. Used by the CLI and tests.
type SyncAuditLogger struct {
	DB      *gorm.DB
	Now     Clock
	Timeout time.Duration
	Logger  *log.Logger
}

func (l SyncAuditLogger) Record(entry AuditEntry) {
	now := l.Now
	if now == nil {
		now = SystemClock
	}
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	row := toAuditRow(entry, now())
	if err := l.DB.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Printf("audit: failed to record %s: %v", entry.Action, err)
	}
}

// AsyncAuditLogger buffers entries and writes them from a single background goroutine
type AsyncAuditLogger struct {
	db      *gorm.DB
	entries chan models.AuditLogEntry
	now     Clock
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncAuditLogger starts the background writer
func NewAsyncAuditLogger(db *gorm.DB, bufferSize int, timeout time.Duration, logger *log.Logger) *AsyncAuditLogger {
	l := newAsyncAuditLogger(db, bufferSize, timeout, logger)
	l.start()
	return l
}

func newAsyncAuditLogger(db *gorm.DB, bufferSize int, timeout time.Duration, logger *log.Logger) *AsyncAuditLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &AsyncAuditLogger{
		db:      db,
		entries: make(chan models.AuditLogEntry, bufferSize),
		now:     SystemClock,
		timeout: timeout,
		logger:  logger,
	}
}

func (l *AsyncAuditLogger) start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for row := range l.entries {
			l.write(row)
		}
	}()
}

func (l *AsyncAuditLogger) write(row models.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		l.logger.Printf("audit: failed to record %s: %v", row.Action, err)
	}
}

// Record stamps the entry and queues it. A full buffer drops the entry.
func (l *AsyncAuditLogger) Record(entry AuditEntry) {
	row := toAuditRow(entry, l.now())

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Printf("audit: logger closed, dropping %s", entry.Action)
		return
	}
	select {
	case l.entries <- row:
	default:
		l.logger.Printf("audit: buffer full, dropping %s", entry.Action)
	}
}

// Close stops accepting entries and waits for queued ones to be written
func (l *AsyncAuditLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.entries)
	l.mu.Unlock()
	l.wg.Wait()
}

func toAuditRow(entry AuditEntry, at time.Time) models.AuditLogEntry {
	return models.AuditLogEntry{
		UserID:    entry.UserID,
		UserName:  entry.UserName,
		Action:    entry.Action,
		Details:   entry.Details,
		Timestamp: at,
	}
}

// AuditService reads the audit log
type AuditService struct {
	base
}

func NewAuditService(db *gorm.DB, opts Options) *AuditService {
	return &AuditService{base: newBase(db, opts)}
}

// List returns entries most recent first. limit <= 0 means no limit.
func (s *AuditService) List(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.AuditLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, readFailure("Falha ao buscar logs do sistema.", err)
	}
	return entries, nil
}

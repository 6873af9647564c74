package services

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncAuditLoggerWritesOnClose(t *testing.T) {
	db := testutil.NewTestDB(t)
	logger := NewAsyncAuditLogger(db, 16, time.Second, log.New(&bytes.Buffer{}, "", 0))

	userID := uint(7)
	for i := 0; i < 5; i++ {
		logger.Record(AuditEntry{UserID: &userID, UserName: "Ana", Action: ActionOrderCreated, Details: "OS criada"})
	}
	logger.Close()

	assert.Equal(t, int64(5), testutil.CountRows(t, db, &models.AuditLogEntry{}, "usuario_id = ?", userID))

	// recording after close is dropped, not a panic
	assert.NotPanics(t, func() {
		logger.Record(AuditEntry{Action: ActionLogout})
	})
	logger.Close()
}

func TestAsyncAuditLoggerDropsWhenBufferIsFull(t *testing.T) {
	db := testutil.NewTestDB(t)
	var out bytes.Buffer
	logger := newAsyncAuditLogger(db, 1, time.Second, log.New(&out, "", 0))

	// the writer is not running yet, so the second entry has nowhere to go
	logger.Record(AuditEntry{Action: ActionLoginSuccess})
	logger.Record(AuditEntry{Action: ActionLoginFailure})
	assert.Contains(t, out.String(), "buffer full, dropping LOGIN_FALHA")

	logger.start()
	logger.Close()

	var entries []models.AuditLogEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionLoginSuccess, entries[0].Action)
}

func TestAuditWriteFailureIsSwallowed(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.AuditLogEntry{}))

	var out bytes.Buffer
	sync := SyncAuditLogger{DB: db, Logger: log.New(&out, "", 0)}
	assert.NotPanics(t, func() {
		sync.Record(AuditEntry{Action: ActionUserCreated})
	})
	assert.Contains(t, out.String(), "failed to record USUARIO_CRIADO")

	async := NewAsyncAuditLogger(db, 4, time.Second, log.New(&out, "", 0))
	async.Record(AuditEntry{Action: ActionUserDeleted})
	async.Close()
	assert.Contains(t, out.String(), "failed to record USUARIO_EXCLUIDO")
}

func TestAuditServiceListsNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	base := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{ActionLoginSuccess, ActionOrderCreated, ActionLogout} {
		logger := SyncAuditLogger{DB: db, Now: testutil.FixedClock(base.Add(time.Duration(i) * time.Minute))}
		logger.Record(AuditEntry{UserName: "Ana", Action: action})
	}

	svc := NewAuditService(db, Options{})
	entries, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ActionLogout, entries[0].Action)
	assert.Equal(t, ActionLoginSuccess, entries[2].Action)

	limited, err := svc.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

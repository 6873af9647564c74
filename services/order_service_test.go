package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/testutil"
	"github.com/guincho-oliveira/crm-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) orderInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerID:  f.catalog.Customer.ID,
		DriverID:    f.catalog.Driver.ID,
		VehicleID:   f.catalog.Vehicle.ID,
		Location:    "Av. Paulista, 1000",
		Description: "Reboque de automóvel",
		ScheduledAt: f.now().Add(2 * time.Hour),
		Value:       decimal.RequireFromString("250.00"),
	}
}

func TestCreateOrderAllocatesSequentialIDs(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	ctx := context.Background()

	first, err := svc.Create(ctx, f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0001", first.ID)
	assert.Equal(t, models.StatusQueued, first.Status)
	assert.Equal(t, f.actor.UserID, first.AttendantID)

	second, err := svc.Create(ctx, f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0002", second.ID)

	assert.Equal(t, []string{ActionOrderCreated, ActionOrderCreated}, f.audit.actions())
	assert.Equal(t, []string{EventOrderCreated, EventOrderCreated}, f.events.types())
}

func TestCreateOrderSeedsCounterFromExistingOrders(t *testing.T) {
	f := newFixture(t)
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0041", models.StatusCompleted, "100")
	testutil.CreateOrder(t, f.db, f.catalog, "0225-0099", models.StatusCompleted, "100")

	svc := NewOrderService(f.db, nil, f.opts)
	order, err := svc.Create(context.Background(), f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0042", order.ID)
}

func TestCreateOrderSkipsIDsAheadOfStaleCounter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.OrderSequence{Period: "0325", LastNumber: 0}).Error)
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusCompleted, "100")

	svc := NewOrderService(f.db, nil, f.opts)
	ctx := context.Background()

	order, err := svc.Create(ctx, f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0002", order.ID)

	order, err = svc.Create(ctx, f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0003", order.ID)

	var seq models.OrderSequence
	require.NoError(t, f.db.Take(&seq, "periodo = ?", "0325").Error)
	assert.Equal(t, 3, seq.LastNumber)
}

func TestCreateOrderConcurrently(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = make(map[string]bool)
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := svc.Create(context.Background(), f.actor, f.orderInput())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[order.ID] = true
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, ids, n, "every order gets its own id")
	for i := 1; i <= n; i++ {
		assert.True(t, ids[FormatOrderID("0325", i)], "missing %s", FormatOrderID("0325", i))
	}
}

func TestCreateOrderUsesBusinessTimezone(t *testing.T) {
	f := newFixture(t)
	// 02:00 UTC on April 1st is still March 31st in São Paulo
	f.opts.Now = testutil.FixedClock(time.Date(2025, 4, 1, 2, 0, 0, 0, time.UTC))

	svc := NewOrderService(f.db, nil, f.opts)
	in := f.orderInput()
	in.ScheduledAt = f.opts.Now().Add(time.Hour)

	order, err := svc.Create(context.Background(), f.actor, in)
	require.NoError(t, err)
	assert.Equal(t, "0325-0001", order.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)

	tests := []struct {
		name   string
		mutate func(in *CreateOrderInput)
		code   string
	}{
		{"missing customer", func(in *CreateOrderInput) { in.CustomerID = 0 }, "VALIDATION_ERROR"},
		{"missing description", func(in *CreateOrderInput) { in.Description = "  " }, "VALIDATION_ERROR"},
		{"missing date", func(in *CreateOrderInput) { in.ScheduledAt = time.Time{} }, "VALIDATION_ERROR"},
		{"negative value", func(in *CreateOrderInput) { in.Value = decimal.NewFromInt(-1) }, "VALIDATION_ERROR"},
		{"unknown driver", func(in *CreateOrderInput) { in.DriverID = 999 }, "INVALID_REFERENCE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.orderInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), f.actor, in)
			require.Error(t, err)
			appErr := apperrors.As(err)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}

	assert.Equal(t, int64(0), testutil.CountRows(t, f.db, &models.ServiceOrder{}, ""))
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	for _, from := range models.AllOrderStatuses() {
		for _, to := range models.AllOrderStatuses() {
			t.Run(string(from)+" -> "+string(to), func(t *testing.T) {
				f := newFixture(t)
				svc := NewOrderService(f.db, nil, f.opts)
				testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", from, "180.50")

				updated, err := svc.UpdateStatus(context.Background(), f.actor, "0325-0001", to)

				var stored models.ServiceOrder
				require.NoError(t, f.db.Take(&stored, "id = ?", "0325-0001").Error)
				entries := testutil.CountRows(t, f.db, &models.LedgerEntry{}, "os_id = ?", "0325-0001")

				if from.CanTransitionTo(to) {
					require.NoError(t, err)
					assert.Equal(t, to, updated.Status)
					assert.Equal(t, to, stored.Status)
					if to == models.StatusCompleted {
						assert.Equal(t, int64(1), entries)
					} else {
						assert.Equal(t, int64(0), entries)
					}
					return
				}

				require.Error(t, err)
				assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
				assert.Contains(t, err.Error(), string(from))
				assert.Contains(t, err.Error(), string(to))
				assert.Equal(t, from, stored.Status)
				assert.Equal(t, int64(0), entries)
				assert.Empty(t, f.audit.actions())
			})
		}
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)

	_, err := svc.UpdateStatus(context.Background(), f.actor, "0325-9999", models.StatusScheduled)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusQueued, "100")

	_, err := svc.UpdateStatus(context.Background(), f.actor, "0325-0001", "Arquivado")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestCompletingOrderPostsRevenue(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0007", models.StatusInProgress, "250.00")

	order, err := svc.UpdateStatus(context.Background(), f.actor, "0325-0007", models.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, order.ResolvedAt)
	assert.True(t, f.now().Equal(*order.ResolvedAt))

	var entries []models.LedgerEntry
	require.NoError(t, f.db.Where("os_id = ?", "0325-0007").Find(&entries).Error)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, models.LedgerRevenue, entry.Kind)
	assert.True(t, decimal.RequireFromString("250").Equal(entry.Amount))
	assert.Equal(t, "Receita referente à OS #0325-0007", entry.Description)
	require.NotNil(t, entry.DriverID)
	assert.Equal(t, f.catalog.Driver.ID, *entry.DriverID)

	var category models.FinancialCategory
	require.NotNil(t, entry.CategoryID)
	require.NoError(t, f.db.Take(&category, *entry.CategoryID).Error)
	assert.True(t, category.OrderRevenue)

	assert.Equal(t, []string{ActionOrderStatusChanged}, f.audit.actions())
	assert.Equal(t, []string{EventOrderCompleted}, f.events.types())
}

func TestCompletingOrderRollsBackWhenLedgerInsertFails(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0003", models.StatusInProgress, "300")

	require.NoError(t, f.db.Migrator().DropTable(&models.LedgerEntry{}))

	_, err := svc.UpdateStatus(context.Background(), f.actor, "0325-0003", models.StatusCompleted)
	require.Error(t, err)
	appErr := apperrors.As(err)
	assert.Equal(t, apperrors.KindPersistence, appErr.Kind)
	assert.Equal(t, "Falha no processo de atualização.", appErr.Message)

	var stored models.ServiceOrder
	require.NoError(t, f.db.Take(&stored, "id = ?", "0325-0003").Error)
	assert.Equal(t, models.StatusInProgress, stored.Status)
	assert.Nil(t, stored.ResolvedAt)

	assert.Empty(t, f.audit.actions(), "nothing is audited for a rolled back unit of work")
	assert.Empty(t, f.events.types())
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	ctx := context.Background()
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusInProgress, "100")
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0002", models.StatusCompleted, "100")
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0003", models.StatusCancelled, "100")

	t.Run("missing date", func(t *testing.T) {
		_, err := svc.Reschedule(ctx, f.actor, "0325-0001", time.Time{})
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("date in the past", func(t *testing.T) {
		_, err := svc.Reschedule(ctx, f.actor, "0325-0001", f.now().Add(-time.Minute))
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("date equal to now", func(t *testing.T) {
		_, err := svc.Reschedule(ctx, f.actor, "0325-0001", f.now())
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("closed orders", func(t *testing.T) {
		for _, id := range []string{"0325-0002", "0325-0003"} {
			_, err := svc.Reschedule(ctx, f.actor, id, f.now().Add(24*time.Hour))
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), id)
		}
		var stored models.ServiceOrder
		require.NoError(t, f.db.Take(&stored, "id = ?", "0325-0002").Error)
		assert.Equal(t, models.StatusCompleted, stored.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.Reschedule(ctx, f.actor, "0325-0404", f.now().Add(time.Hour))
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("success", func(t *testing.T) {
		when := f.now().Add(48 * time.Hour)
		order, err := svc.Reschedule(ctx, f.actor, "0325-0001", when)
		require.NoError(t, err)
		assert.Equal(t, models.StatusScheduled, order.Status)

		var stored models.ServiceOrder
		require.NoError(t, f.db.Take(&stored, "id = ?", "0325-0001").Error)
		assert.Equal(t, models.StatusScheduled, stored.Status)
		assert.True(t, when.Equal(stored.ScheduledAt))
		assert.Contains(t, f.audit.actions(), ActionOrderRescheduled)
	})
}

func TestNotesAndAttachments(t *testing.T) {
	f := newFixture(t)
	store := NewMemoryAttachmentStore()
	svc := NewOrderService(f.db, store, f.opts)
	ctx := context.Background()
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusQueued, "100")

	note, err := svc.AddNote(ctx, f.actor, "0325-0001", "", "Cliente pediu retorno por telefone")
	require.NoError(t, err)
	assert.Equal(t, f.actor.Name, note.Author)
	assert.Equal(t, models.NoteComment, note.Kind)

	file := &utils.Attachment{Name: "laudo.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
	attached, err := svc.AddAttachment(ctx, f.actor, "0325-0001", "Carlos", file)
	require.NoError(t, err)
	assert.Equal(t, models.NoteAttachment, attached.Kind)
	require.NotNil(t, attached.AttachmentKey)
	assert.True(t, store.Exists(*attached.AttachmentKey))
	require.NotNil(t, attached.AttachmentURL)
	assert.Equal(t, "memory://"+*attached.AttachmentKey, *attached.AttachmentURL)

	notes, err := svc.ListNotes(ctx, "0325-0001")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, note.ID, notes[0].ID)
	assert.NotNil(t, notes[1].AttachmentURL)

	_, err = svc.AddNote(ctx, f.actor, "0325-0404", "", "texto")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	_, err = svc.AddNote(ctx, f.actor, "0325-0001", "", " ")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestPurgeRemovesNotesAndAttachments(t *testing.T) {
	f := newFixture(t)
	store := NewMemoryAttachmentStore()
	svc := NewOrderService(f.db, store, f.opts)
	ctx := context.Background()
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusQueued, "100")
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0002", models.StatusQueued, "100")

	_, err := svc.AddNote(ctx, f.actor, "0325-0001", "", "primeira nota")
	require.NoError(t, err)
	_, err = svc.AddAttachment(ctx, f.actor, "0325-0001", "", &utils.Attachment{Name: "a.png", Data: []byte("png")})
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, f.actor, "0325-0002", "", "outra OS")
	require.NoError(t, err)

	require.NoError(t, svc.Purge(ctx, f.actor, "0325-0001"))

	assert.Equal(t, int64(0), testutil.CountRows(t, f.db, &models.ServiceOrder{}, "id = ?", "0325-0001"))
	assert.Equal(t, int64(0), testutil.CountRows(t, f.db, &models.Note{}, "os_id = ?", "0325-0001"))
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.Note{}, "os_id = ?", "0325-0002"))
	assert.Empty(t, store.Files())

	err = svc.Purge(ctx, f.actor, "0325-0001")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	ctx := context.Background()
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusQueued, "100")
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0002", models.StatusCompleted, "100")

	all, err := svc.List(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	require.NotNil(t, all[0].Customer)
	assert.Equal(t, f.catalog.Customer.Name, all[0].Customer.Name)

	queued, err := svc.List(ctx, OrderFilter{Status: models.StatusQueued})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "0325-0001", queued[0].ID)

	byID, err := svc.List(ctx, OrderFilter{Query: "0002"})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	// fixtures are scheduled on 20/03/2025 at 10:00 in São Paulo
	onDay, err := svc.List(ctx, OrderFilter{CreatedOn: "2025-03-20"})
	require.NoError(t, err)
	assert.Len(t, onDay, 2)

	otherDay, err := svc.List(ctx, OrderFilter{CreatedOn: "2025-03-21"})
	require.NoError(t, err)
	assert.Empty(t, otherDay)

	_, err = svc.List(ctx, OrderFilter{CreatedOn: "20/03/2025"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	mine, err := svc.ListByDriver(ctx, f.catalog.Driver.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestOrdersKeepDeletedReferences(t *testing.T) {
	f := newFixture(t)
	svc := NewOrderService(f.db, nil, f.opts)
	ctx := context.Background()
	testutil.CreateOrder(t, f.db, f.catalog, "0325-0001", models.StatusCompleted, "100")

	require.NoError(t, f.db.Delete(&f.catalog.Customer).Error)
	require.NoError(t, f.db.Delete(&f.catalog.Driver).Error)
	require.NoError(t, f.db.Delete(&f.catalog.Vehicle).Error)

	order, err := svc.Get(ctx, "0325-0001")
	require.NoError(t, err)
	require.NotNil(t, order.Customer)
	require.NotNil(t, order.Driver)
	require.NotNil(t, order.Vehicle)
	assert.Equal(t, f.catalog.Customer.Name, order.Customer.Name)
	assert.Equal(t, f.catalog.Driver.ID, order.Driver.ID)
	assert.Equal(t, f.catalog.Vehicle.ID, order.Vehicle.ID)

	all, err := svc.List(ctx, OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].Customer)
	assert.NotNil(t, all[0].Driver)
	assert.NotNil(t, all[0].Vehicle)
}

// Scenario: an order created in March 2025 is completed, then its revenue
// entry is deleted by finance.
func TestOrderLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	orders := NewOrderService(f.db, nil, f.opts)
	ledger := NewLedgerService(f.db, f.opts)
	ctx := context.Background()

	order, err := orders.Create(ctx, f.actor, f.orderInput())
	require.NoError(t, err)
	assert.Equal(t, "0325-0001", order.ID)

	_, err = orders.UpdateStatus(ctx, f.actor, order.ID, models.StatusInProgress)
	require.NoError(t, err)
	_, err = orders.UpdateStatus(ctx, f.actor, order.ID, models.StatusCompleted)
	require.NoError(t, err)

	var entry models.LedgerEntry
	require.NoError(t, f.db.Where("os_id = ?", order.ID).Take(&entry).Error)
	assert.True(t, decimal.RequireFromString("250").Equal(entry.Amount))

	require.NoError(t, ledger.Delete(ctx, f.actor, entry.ID))

	var stored models.ServiceOrder
	require.NoError(t, f.db.Take(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.StatusLedgerEntryDeleted, stored.Status)

	var notes []models.Note
	require.NoError(t, f.db.Where("os_id = ? AND tipo = ?", order.ID, models.NoteSystem).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, SystemAuthor, notes[0].Author)
	assert.Contains(t, notes[0].Text, "20/03/2025")

	// the reversed order can be completed again, re-posting revenue
	_, err = orders.UpdateStatus(ctx, f.actor, order.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.CountRows(t, f.db, &models.LedgerEntry{}, "os_id = ?", order.ID))
}

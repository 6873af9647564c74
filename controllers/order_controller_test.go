package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/guincho-oliveira/crm-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) orderController() *OrderController {
	return NewOrderController(services.NewOrderService(h.db, services.NewMemoryAttachmentStore(), h.opts), h.loc)
}

func (h *harness) orderBody() map[string]any {
	return map[string]any{
		"cliente_id":        h.catalog.Customer.ID,
		"motorista_id":      h.catalog.Driver.ID,
		"veiculo_id":        h.catalog.Vehicle.ID,
		"local_atendimento": "Rod. dos Bandeirantes, km 45",
		"descricao":         "Reboque de carro com pneu furado",
		"data_hora":         time.Now().In(h.loc).Add(3 * time.Hour).Format("2006-01-02T15:04"),
		"valor":             "280.50",
	}
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	ctl := h.orderController()

	tests := []struct {
		name     string
		actor    *services.Actor
		mutate   func(body map[string]any)
		status   int
		code     string
		validate func(t *testing.T, data map[string]any)
	}{
		{
			name:   "opens the order in the queue",
			actor:  &operator,
			status: http.StatusCreated,
			validate: func(t *testing.T, data map[string]any) {
				assert.Regexp(t, `^\d{4}-0001$`, data["id"])
				assert.Equal(t, string(models.StatusQueued), data["status"])
				assert.Equal(t, "280.5", data["valor"])
			},
		},
		{
			name:   "requires an authenticated user",
			status: http.StatusUnauthorized,
			code:   "UNAUTHORIZED",
		},
		{
			name:   "rejects a missing field",
			actor:  &operator,
			mutate: func(body map[string]any) { delete(body, "descricao") },
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "rejects a malformed date",
			actor:  &operator,
			mutate: func(body map[string]any) { body["data_hora"] = "amanhã cedo" },
			status: http.StatusBadRequest,
			code:   "INVALID_DATE",
		},
		{
			name:   "rejects an unknown customer",
			actor:  &operator,
			mutate: func(body map[string]any) { body["cliente_id"] = 4040 },
			status: http.StatusBadRequest,
			code:   "INVALID_REFERENCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := h.orderBody()
			if tt.mutate != nil {
				tt.mutate(body)
			}
			w := serve(t, http.MethodPost, "/ordens", "/ordens", ctl.Create, tt.actor, body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
			if tt.validate != nil {
				tt.validate(t, decode(t, w)["data"].(map[string]any))
			}
		})
	}
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)
	ctl := h.orderController()
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0001", models.StatusQueued, "100")
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0002", models.StatusCompleted, "200")

	w := serve(t, http.MethodGet, "/ordens", "/ordens?status=Conclu%C3%ADdo", ctl.List, &operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "0325-0002", data[0].(map[string]any)["id"])

	w = serve(t, http.MethodGet, "/ordens", "/ordens?motorista_id=abc", ctl.List, &operator, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))

	w = serve(t, http.MethodGet, "/ordens/motorista/:id", "/ordens/motorista/0", ctl.ListByDriver, &operator, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	h := newHarness(t)
	ctl := h.orderController()
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0001", models.StatusQueued, "150")

	tests := []struct {
		name   string
		id     string
		status models.OrderStatus
		want   int
		code   string
	}{
		{"queued cannot complete", "0325-0001", models.StatusCompleted, http.StatusBadRequest, "INVALID_TRANSITION"},
		{"unknown status", "0325-0001", "Perdido", http.StatusBadRequest, "INVALID_TRANSITION"},
		{"unknown order", "0325-9999", models.StatusScheduled, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"queued to scheduled", "0325-0001", models.StatusScheduled, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, http.MethodPut, "/ordens/:id/status", "/ordens/"+tt.id+"/status", ctl.UpdateStatus,
				&operator, map[string]any{"status": tt.status})
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
		})
	}
}

func TestRescheduleOrder(t *testing.T) {
	h := newHarness(t)
	ctl := h.orderController()
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0001", models.StatusInProgress, "150")
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0002", models.StatusCancelled, "150")
	future := time.Now().In(h.loc).AddDate(0, 0, 2).Format("2006-01-02 15:04")

	tests := []struct {
		name string
		id   string
		when string
		want int
		code string
	}{
		{"missing date", "0325-0001", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed date", "0325-0001", "31/02", http.StatusBadRequest, "INVALID_DATE"},
		{"past date", "0325-0001", "2020-01-01 10:00", http.StatusBadRequest, "DATE_IN_PAST"},
		{"closed order", "0325-0002", future, http.StatusBadRequest, "ORDER_CLOSED"},
		{"in progress goes back to scheduled", "0325-0001", future, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, http.MethodPut, "/ordens/:id/reagendar", "/ordens/"+tt.id+"/reagendar", ctl.Reschedule,
				&operator, map[string]any{"novaDataHora": tt.when})
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
				return
			}
			assert.Equal(t, string(models.StatusScheduled), decode(t, w)["data"].(map[string]any)["status"])
		})
	}
}

func TestDeleteOrder(t *testing.T) {
	h := newHarness(t)
	ctl := h.orderController()
	testutil.CreateOrder(t, h.db, h.catalog, "0325-0001", models.StatusCompleted, "150")
	admin := services.Actor{UserID: 1, Name: "Administrador", Role: models.RoleGeneralAdmin}

	w := serve(t, http.MethodDelete, "/ordens/:id", "/ordens/0325-0001", ctl.Delete, &admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(0), testutil.CountRows(t, h.db, &models.ServiceOrder{}, "id = ?", "0325-0001"))

	w = serve(t, http.MethodDelete, "/ordens/:id", "/ordens/0325-0001", ctl.Delete, &admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

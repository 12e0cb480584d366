package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

// recordingMetrics keeps the label sets every counter was incremented with.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[observability.MetricKey][]map[string]string
}

func (m *recordingMetrics) Counter(name observability.MetricKey) observability.Counter {
	return recordingCounter{m: m, name: name}
}

func (m *recordingMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

func (m *recordingMetrics) labels(name observability.MetricKey) []map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

type recordingCounter struct {
	m    *recordingMetrics
	name observability.MetricKey
}

func (c recordingCounter) Add(_ float64, labels ...observability.Label) {
	set := make(map[string]string, len(labels))
	for _, l := range labels {
		set[l.Key] = l.Value
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.counts[c.name] = append(c.m.counts[c.name], set)
}

func (c recordingCounter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundRecordingCounter{c: c, labels: labels}
}

type boundRecordingCounter struct {
	c      recordingCounter
	labels []observability.Label
}

func (b boundRecordingCounter) Add(d float64) { b.c.Add(d, b.labels...) }

type telemetry struct{ metrics *recordingMetrics }

func (telemetry) Tracer() observability.Tracer     { return observability.NopTracer() }
func (telemetry) Logger() observability.Logger     { return observability.NopLogger() }
func (t telemetry) Metrics() observability.Metrics { return t.metrics }

type server struct {
	store   *memory.OrderStore
	metrics *recordingMetrics
	handler http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{
		store:   memory.NewOrderStore(),
		metrics: &recordingMetrics{counts: map[observability.MetricKey][]map[string]string{}},
	}
	tel := telemetry{metrics: s.metrics}
	deps := apporder.Dependencies{
		Store:        s.store,
		Settings:     memory.NewSettings(settings.Thresholds{MinimumOrderAmount: decimal.NewFromInt(400), MinimumItemCount: 2}),
		Availability: memory.NewAvailability(),
		Publisher:    discardPublisher{},
		Tel:          tel,
		Now:          func() time.Time { return created.Add(time.Hour) },
		NewRefundID:  func() string { return "rf_1" },
	}
	s.handler = NewHandler(NewUseCases(deps), nil, tel).Router()

	o, err := domain.New("o1", "N-1001", "cust-1", []domain.Item{
		{ID: "a", ProductID: "prod-a", Name: "Lamp", Price: decimal.NewFromInt(200), Quantity: 1},
		{ID: "b", ProductID: "prod-b", Name: "Rug", Price: decimal.NewFromInt(125), Quantity: 2},
	}, created)
	require.NoError(t, err)
	require.NoError(t, s.store.Insert(context.Background(), o))
	return s
}

func (s *server) do(t *testing.T, method, path, body, actor string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(headerActorID, actor)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestAdminRoutesRequireActor(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodGet, "/admin/orders/o1/progress", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "ACTOR_REQUIRED", body["error"])
}

func TestUpdateItemStatus(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodPatch, "/admin/orders/o1/items/a/status", `{"status":"ordered","notes":"placed"}`, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, true, body["changed"])
	require.EqualValues(t, 1, body["version"])
	item := body["item"].(map[string]any)
	require.Equal(t, "ordered", item["status"])
	history := item["status_history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	require.Equal(t, "ordered", entry["status"])
	require.Equal(t, "placed", entry["notes"])
	require.Equal(t, "admin-1", entry["changed_by"])
}

func TestUpdateItemStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"invalid transition", "/admin/orders/o1/items/a/status", `{"status":"delivered"}`, http.StatusBadRequest, "INVALID_TRANSITION"},
		{"unknown order", "/admin/orders/nope/items/a/status", `{"status":"ordered"}`, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"unknown item", "/admin/orders/o1/items/zz/status", `{"status":"ordered"}`, http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"unknown status", "/admin/orders/o1/items/a/status", `{"status":"lost"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown field", "/admin/orders/o1/items/a/status", `{"status":"ordered","force":true}`, http.StatusBadRequest, "INVALID_BODY"},
		{"empty body", "/admin/orders/o1/items/a/status", ``, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t)
			rec, body := s.do(t, http.MethodPatch, tc.path, tc.body, "admin-1")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, tc.code, body["error"])
		})
	}
}

func TestInvalidTransitionBodyListsAllowedStatuses(t *testing.T) {
	s := newServer(t)
	_, body := s.do(t, http.MethodPatch, "/admin/orders/o1/items/a/status", `{"status":"delivered"}`, "admin-1")
	require.Equal(t, "pending", body["current"])
	require.Equal(t, "delivered", body["attempted"])
	require.Equal(t, []any{"ordered", "cancelled"}, body["allowed"])
}

func TestCancelItemReturnsRefundAndMinimumCheck(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodPost, "/admin/orders/o1/items/b/cancel", `{"reason":"customer changed mind"}`, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	refund := body["refund"].(map[string]any)
	require.Equal(t, "rf_1", refund["id"])
	require.Equal(t, "250", refund["amount"])
	require.Equal(t, "pending", refund["status"])

	update := body["order_update"].(map[string]any)
	require.Equal(t, "450", update["total"])
	require.Equal(t, "200", update["adjusted_total"])
	require.Equal(t, false, update["meets_minimum"])

	rec, _ = s.do(t, http.MethodPost, "/admin/orders/o1/refunds/rf_1/process", "", "finance-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetOrderProgressAndHistory(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodGet, "/admin/orders/o1/progress", "", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "N-1001", body["order_number"])
	require.EqualValues(t, 2, body["total_count"])

	rec, body = s.do(t, http.MethodGet, "/admin/orders/o1/items/a/history", "", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "pending", body["current_status"])
	require.Equal(t, []any{"ordered", "cancelled"}, body["allowed_next"])
}

func TestBulkOrderFromSupplier(t *testing.T) {
	s := newServer(t)
	payload := `{
		"supplier_name": "Acme",
		"supplier_order_number": "PO-7",
		"ordered": [{"item_id": "a", "actual_cost": "150.50"}],
		"unavailable": [{"order_id": "o1", "item_id": "b"}]
	}`
	rec, body := s.do(t, http.MethodPost, "/admin/supplier-orders", payload, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.EqualValues(t, 2, body["succeeded"])
	require.EqualValues(t, 0, body["failed"])
	require.Equal(t, map[string]any{"o1": float64(1)}, body["versions"])

	ordered := body["ordered"].([]any)[0].(map[string]any)
	item := ordered["item"].(map[string]any)
	require.Equal(t, "150.5", item["supplier_order"].(map[string]any)["actual_cost"])
}

func TestCheckAvailabilityAfterSupplierRun(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodPost, "/admin/supplier-orders", `{"supplier_name":"Acme","unavailable":[{"item_id":"b"}]}`, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(t, http.MethodGet, "/admin/inventory/prod-b/availability", "", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, true, body["unavailable"])

	_, body = s.do(t, http.MethodGet, "/admin/inventory/prod-a/availability", "", "admin-1")
	require.Equal(t, false, body["unavailable"])
}

func TestOverrideStatusAndApplySuggestion(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(t, http.MethodPut, "/admin/orders/o1/status", `{"status":"in_progress","hold":true,"note":"manual"}`, "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "in_progress", body["status"])
	require.Equal(t, true, body["status_hold"])

	rec, body = s.do(t, http.MethodPost, "/admin/orders/o1/status/apply-suggestion", "", "admin-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, false, body["applied"])
}

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	s := newServer(t)
	s.do(t, http.MethodGet, "/admin/orders/o1/items/a/history", "", "admin-1")

	sets := s.metrics.labels(observability.MHTTPRequests)
	require.Len(t, sets, 1)
	require.Equal(t, map[string]string{
		"method": http.MethodGet,
		"route":  "/admin/orders/{orderID}/items/{itemID}/history",
		"status": "200",
	}, sets[0])
}

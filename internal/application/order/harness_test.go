package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventName()
	}
	return out
}

type stubSettings struct {
	thresholdsFn func(ctx context.Context) (settings.Thresholds, error)
}

func (s stubSettings) Thresholds(ctx context.Context) (settings.Thresholds, error) {
	return s.thresholdsFn(ctx)
}

type stubAvailability struct {
	mu      sync.Mutex
	calls   []dominventory.Ref
	failFor map[string]error
}

func (a *stubAvailability) MarkUnavailable(_ context.Context, ref dominventory.Ref) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ref)
	return a.failFor[ref.Key()]
}

func (a *stubAvailability) IsUnavailable(context.Context, dominventory.Ref) (bool, error) {
	return false, nil
}

type harness struct {
	store     *memory.OrderStore
	settings  *memory.Settings
	avail     *stubAvailability
	publisher *recordingPublisher
	now       time.Time
	refundSeq int
	deps      Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewOrderStore(),
		settings:  memory.NewSettings(settings.Thresholds{MinimumOrderAmount: decimal.NewFromInt(400), MinimumItemCount: 2}),
		avail:     &stubAvailability{failFor: map[string]error{}},
		publisher: &recordingPublisher{},
		now:       t0.Add(time.Hour),
	}
	h.deps = Dependencies{
		Store:        h.store,
		Settings:     h.settings,
		Availability: h.avail,
		Publisher:    h.publisher,
		Now:          func() time.Time { return h.now },
		NewRefundID: func() string {
			h.refundSeq++
			return fmt.Sprintf("rf_%d", h.refundSeq)
		},
	}
	return h
}

type itemSpec struct {
	id     string
	price  int64
	qty    int
	status domain.ItemStatus
}

func (h *harness) seed(t *testing.T, orderID string, specs ...itemSpec) {
	t.Helper()
	items := make([]domain.Item, len(specs))
	for i, s := range specs {
		items[i] = domain.Item{
			ID:         s.id,
			ProductID:  "prod-" + s.id,
			VariantSKU: "sku-" + s.id,
			Name:       "Item " + s.id,
			Price:      decimal.NewFromInt(s.price),
			Quantity:   s.qty,
			Status:     s.status,
		}
	}
	o, err := domain.New(orderID, "N-"+orderID, "cust-1", items, t0)
	require.NoError(t, err)
	require.NoError(t, h.store.Insert(context.Background(), o))
}

func (h *harness) order(t *testing.T, orderID string) *domain.Order {
	t.Helper()
	o, err := h.store.Get(context.Background(), orderID)
	require.NoError(t, err)
	return o
}

func (h *harness) item(t *testing.T, orderID, itemID string) domain.Item {
	t.Helper()
	it, err := h.order(t, orderID).Item(itemID)
	require.NoError(t, err)
	return it
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func requireDecEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

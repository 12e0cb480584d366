package order

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/stretchr/testify/require"
)

func TestUpdateItemStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1}, itemSpec{id: "b", price: 100, qty: 1})
	uc := NewUpdateItemStatusUseCase(h.deps)

	res, err := uc.Execute(ctx, UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered", Actor: "admin-1"})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, domain.ItemOrdered, res.Item.Status)
	require.Equal(t, int64(1), res.Version)
	require.NotNil(t, res.Suggestion)
	require.Equal(t, domain.StatusInProgress, res.Suggestion.Suggested)
	require.Equal(t, domain.ConfidenceLow, res.Suggestion.Confidence)

	stored := h.item(t, "o1", "a")
	require.Len(t, stored.StatusHistory, 1)
	require.Equal(t, "admin-1", stored.StatusHistory[0].ChangedBy)
	require.Equal(t, h.now, stored.StatusHistory[0].ChangedAt)
	require.Equal(t, domain.StatusPending, h.order(t, "o1").Status, "suggestions are never applied implicitly")
	require.Equal(t, []string{domain.EventItemStatusChanged}, h.publisher.names())
}

func TestUpdateItemStatusInvalidTransition(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1})

	_, err := NewUpdateItemStatusUseCase(h.deps).Execute(context.Background(),
		UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "delivered", Actor: "admin"})

	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, domain.ItemPending, te.Current)
	require.Equal(t, domain.ItemDelivered, te.Attempted)
	require.Equal(t, []domain.ItemStatus{domain.ItemOrdered, domain.ItemCancelled}, te.Allowed)
	require.Equal(t, int64(0), h.order(t, "o1").Version)
	require.Empty(t, h.publisher.names())
}

func TestUpdateItemStatusPreconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1}, itemSpec{id: "b", price: 100, qty: 1})
	uc := NewUpdateItemStatusUseCase(h.deps)
	_, err := NewCancelItemUseCase(h.deps).Execute(ctx, CancelItemCommand{OrderID: "o1", ItemID: "b", Reason: "x", Actor: "admin"})
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  UpdateItemStatusCommand
		is   error
	}{
		{"missing actor", UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered"}, ErrActor},
		{"missing order", UpdateItemStatusCommand{OrderID: "nope", ItemID: "a", Status: "ordered", Actor: "x"}, domain.ErrNotFound},
		{"missing item", UpdateItemStatusCommand{OrderID: "o1", ItemID: "zz", Status: "ordered", Actor: "x"}, domain.ErrItemNotFound},
		{"unknown status", UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "lost", Actor: "x"}, domain.ErrValidation},
		{"cancel through update", UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "cancelled", Actor: "x"}, domain.ErrValidation},
		{"notes too long", UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered", Notes: strings.Repeat("n", domain.MaxNotesLength+1), Actor: "x"}, domain.ErrValidation},
		{"cancelled item", UpdateItemStatusCommand{OrderID: "o1", ItemID: "b", Status: "ordered", Actor: "x"}, domain.ErrInvalidState},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Execute(ctx, tc.cmd)
			require.ErrorIs(t, err, tc.is)
		})
	}
}

func TestUpdateItemStatusSelfTransition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1})
	uc := NewUpdateItemStatusUseCase(h.deps)

	res, err := uc.Execute(ctx, UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "pending", Actor: "admin"})
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, int64(0), h.order(t, "o1").Version)

	res, err = uc.Execute(ctx, UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "pending", Notes: "chased supplier", Actor: "admin"})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, int64(1), res.Version)
	require.Len(t, h.item(t, "o1", "a").StatusHistory, 1)
}

func TestOrderFromSupplierTwice(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1})
	uc := NewOrderFromSupplierUseCase(h.deps)

	res, err := uc.Execute(ctx, OrderFromSupplierCommand{
		OrderID: "o1", ItemID: "a", Actor: "admin",
		SupplierOrderData: SupplierOrderData{SupplierOrderNumber: "SUP-1", SupplierTrackingNumber: "TRK-1"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ItemOrdered, res.Item.Status)
	require.NotNil(t, res.Item.SupplierOrder)
	require.Equal(t, h.now, res.Item.SupplierOrder.OrderedAt)
	requireDecEqual(t, dec(100), res.Item.SupplierOrder.ActualCost)

	_, err = uc.Execute(ctx, OrderFromSupplierCommand{OrderID: "o1", ItemID: "a", Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrAlreadyOrdered)
	require.Equal(t, int64(1), h.order(t, "o1").Version)
}

func TestOrderFromSupplierAfterStatusUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1})

	_, err := NewUpdateItemStatusUseCase(h.deps).Execute(ctx,
		UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered", Actor: "admin"})
	require.NoError(t, err)

	_, err = NewOrderFromSupplierUseCase(h.deps).Execute(ctx, OrderFromSupplierCommand{OrderID: "o1", ItemID: "a", Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrAlreadyOrdered)

	stored := h.item(t, "o1", "a")
	require.Equal(t, domain.ItemOrdered, stored.Status)
	require.Nil(t, stored.SupplierOrder)
	require.Len(t, stored.StatusHistory, 1)
	require.Equal(t, int64(1), h.order(t, "o1").Version)
}

func TestOrderFromSupplierValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 100, qty: 1}, itemSpec{id: "b", price: 100, qty: 1, status: domain.ItemInTransit})
	uc := NewOrderFromSupplierUseCase(h.deps)

	neg := dec(-5)
	_, err := uc.Execute(ctx, OrderFromSupplierCommand{OrderID: "o1", ItemID: "a", ActualCost: &neg, Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(ctx, OrderFromSupplierCommand{
		OrderID: "o1", ItemID: "a", Actor: "admin",
		SupplierOrderData: SupplierOrderData{SupplierOrderNumber: strings.Repeat("9", domain.MaxFieldLength+1)},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(ctx, OrderFromSupplierCommand{OrderID: "o1", ItemID: "b", Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelItemRefundAndMinimum(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 200, qty: 1}, itemSpec{id: "b", price: 250, qty: 1})
	uc := NewCancelItemUseCase(h.deps)

	res, err := uc.Execute(ctx, CancelItemCommand{OrderID: "o1", ItemID: "b", Reason: "  customer request ", Actor: "admin"})
	require.NoError(t, err)

	require.Equal(t, "rf_1", res.Refund.ID)
	requireDecEqual(t, dec(250), res.Refund.Amount)
	require.Equal(t, domain.RefundPending, res.Refund.Status)
	require.Equal(t, "customer request", res.Refund.Reason)

	u := res.OrderUpdate
	require.Equal(t, 1, u.ActiveItemsCount)
	requireDecEqual(t, dec(200), u.ActiveItemsTotal)
	requireDecEqual(t, dec(250), u.TotalRefunds)
	requireDecEqual(t, dec(200), u.AdjustedTotal)
	require.False(t, u.MeetsMinimum)
	requireDecEqual(t, dec(200), u.MinimumCheck.MissingAmount)
	require.Equal(t, 1, u.MinimumCheck.MissingCount)

	stored := h.order(t, "o1")
	require.Len(t, stored.Refunds, 1)
	requireDecEqual(t, dec(200), stored.Pricing.AdjustedTotal)
	require.Equal(t, []string{domain.EventItemCancelled}, h.publisher.names())
}

func TestCancelItemOutOfStockFullLineRefund(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 350, qty: 2})

	res, err := NewCancelItemUseCase(h.deps).Execute(context.Background(),
		CancelItemCommand{OrderID: "o1", ItemID: "a", Reason: "out of stock", Actor: "admin"})
	require.NoError(t, err)
	requireDecEqual(t, dec(700), res.Refund.Amount)
	requireDecEqual(t, dec(700), res.Item.Cancellation.RefundAmount)
	require.Equal(t, 0, res.OrderUpdate.ActiveItemsCount)
	require.False(t, res.OrderUpdate.MeetsMinimum)
	require.NotNil(t, res.Suggestion)
	require.Equal(t, domain.StatusCancelled, res.Suggestion.Suggested)
}

func TestCancelItemTwiceYieldsOneRefund(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 10, qty: 1})
	uc := NewCancelItemUseCase(h.deps)

	cmd := CancelItemCommand{OrderID: "o1", ItemID: "a", Reason: "dup", Actor: "admin"}
	_, err := uc.Execute(ctx, cmd)
	require.NoError(t, err)
	_, err = uc.Execute(ctx, cmd)
	require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	require.Len(t, h.order(t, "o1").Refunds, 1)
}

func TestCancelItemValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 10, qty: 1})
	uc := NewCancelItemUseCase(h.deps)

	_, err := uc.Execute(ctx, CancelItemCommand{OrderID: "o1", ItemID: "a", Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.Execute(ctx, CancelItemCommand{OrderID: "o1", ItemID: "a", Reason: strings.Repeat("r", 501), Actor: "admin"})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, h.order(t, "o1").Refunds)
}

func TestCancelItemSettingsFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 10, qty: 1})
	h.deps.Settings = stubSettings{thresholdsFn: func(context.Context) (settings.Thresholds, error) {
		return settings.Thresholds{}, errors.New("redis down")
	}}

	_, err := NewCancelItemUseCase(h.deps).Execute(context.Background(),
		CancelItemCommand{OrderID: "o1", ItemID: "a", Reason: "x", Actor: "admin"})
	require.ErrorIs(t, err, ErrSettings)
	require.False(t, h.item(t, "o1", "a").Cancelled())
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "o1", itemSpec{id: "a", price: 10, qty: 1})
	h.publisher.err = errors.New("bus full")

	res, err := NewUpdateItemStatusUseCase(h.deps).Execute(context.Background(),
		UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered", Actor: "admin"})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Version)
}

type failingStore struct {
	domain.Store
	err error
}

func (s failingStore) RunInTx(context.Context, func(context.Context, domain.Tx) error) error {
	return s.err
}

func TestStoreFailuresAreUnexpected(t *testing.T) {
	h := newHarness(t)
	h.deps.Store = failingStore{err: errors.New("connection reset")}

	_, err := NewUpdateItemStatusUseCase(h.deps).Execute(context.Background(),
		UpdateItemStatusCommand{OrderID: "o1", ItemID: "a", Status: "ordered", Actor: "admin"})
	require.ErrorIs(t, err, ErrRepository)
	require.Equal(t, "REPOSITORY_FAILED", ErrorCode(err))
}

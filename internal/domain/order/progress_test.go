package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func cancelled(it Item) Item {
	it.Status = ItemCancelled
	it.Cancellation = &Cancellation{Cancelled: true}
	return it
}

func TestOverallProgressRules(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  Status
	}{
		{"no items", nil, StatusPending},
		{"all pending", []Item{item("a", 1, 1), item("b", 1, 1)}, StatusPending},
		{"all cancelled", []Item{cancelled(item("a", 1, 1)), cancelled(item("b", 1, 1))}, StatusCancelled},
		{"delivered with a cancelled line", []Item{
			withStatus(item("a", 1, 1), ItemDelivered),
			withStatus(item("b", 1, 1), ItemDelivered),
			withStatus(item("c", 1, 1), ItemDelivered),
			cancelled(item("d", 1, 1)),
		}, StatusDelivered},
		{"one shipped", []Item{withStatus(item("a", 1, 1), ItemShippedToCustomer), item("b", 1, 1)}, StatusShipped},
		{"partly delivered", []Item{withStatus(item("a", 1, 1), ItemDelivered), withStatus(item("b", 1, 1), ItemOrdered)}, StatusShipped},
		{"all arrived", []Item{withStatus(item("a", 1, 1), ItemArrivedIsrael), withStatus(item("b", 1, 1), ItemArrivedIsrael)}, StatusReadyToShip},
		{"some in transit", []Item{withStatus(item("a", 1, 1), ItemInTransit), item("b", 1, 1)}, StatusInProgress},
		{"arrived and pending", []Item{withStatus(item("a", 1, 1), ItemArrivedIsrael), item("b", 1, 1)}, StatusInProgress},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveProgress(tc.items, t0, t0).Overall)
		})
	}
}

func TestCompletionPercentage(t *testing.T) {
	p := DeriveProgress([]Item{
		withStatus(item("a", 1, 1), ItemDelivered),
		withStatus(item("b", 1, 1), ItemDelivered),
		withStatus(item("c", 1, 1), ItemDelivered),
		cancelled(item("d", 1, 1)),
	}, t0, t0)
	require.Equal(t, 100, p.CompletionPercentage)
	require.Equal(t, 3, p.ActiveCount)
	require.Equal(t, 4, p.TotalCount)

	p = DeriveProgress([]Item{
		withStatus(item("a", 1, 1), ItemOrdered),
		withStatus(item("b", 1, 1), ItemInTransit),
	}, t0, t0)
	require.Equal(t, 35, p.CompletionPercentage)

	p = DeriveProgress([]Item{cancelled(item("a", 1, 1))}, t0, t0)
	require.Equal(t, 100, p.CompletionPercentage)
}

func TestNeedsAttention(t *testing.T) {
	fresh := withStatus(item("a", 1, 1), ItemOrdered)
	fresh.StatusHistory = []StatusChange{{Status: ItemOrdered, ChangedAt: t0.Add(70 * time.Hour)}}
	stale := withStatus(item("b", 1, 1), ItemInTransit)
	stale.StatusHistory = []StatusChange{{Status: ItemInTransit, ChangedAt: t0}}
	delivered := withStatus(item("c", 1, 1), ItemDelivered)
	neverTouched := item("d", 1, 1)
	dropped := cancelled(item("e", 1, 1))

	now := t0.Add(73 * time.Hour)
	p := DeriveProgress([]Item{fresh, stale, delivered, neverTouched, dropped}, t0, now)
	require.True(t, p.NeedsAttention)
	require.Equal(t, []string{"b", "d"}, p.StaleItemIDs)

	p = DeriveProgress([]Item{fresh, delivered}, t0, now)
	require.False(t, p.NeedsAttention)
	require.Empty(t, p.StaleItemIDs)

	p = DeriveProgress([]Item{neverTouched}, t0, t0.Add(StalenessThreshold))
	require.False(t, p.NeedsAttention)
}

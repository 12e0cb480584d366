package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

const fixture = `
orders:
  - id: o1
    orderNumber: N-1001
    customerId: c1
    createdAt: 2025-02-27T08:00:00Z
    items:
      - {id: a, productId: lamp, variantSku: red, name: Lamp, price: "19.99", quantity: 3}
      - {id: b, productId: mat, name: Mat, price: "7.10", quantity: 1}
  - id: o2
    orderNumber: N-1002
    customerId: c2
    items:
      - {id: c, productId: cup, name: Cup, price: "5", quantity: 2}
`

func TestLoadInsertsPendingOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()

	n, err := Load(ctx, store, []byte(fixture), now)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	o1, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "N-1001", o1.OrderNumber)
	require.Equal(t, time.Date(2025, 2, 27, 8, 0, 0, 0, time.UTC), o1.CreatedAt)
	require.True(t, decimal.RequireFromString("67.07").Equal(o1.Pricing.Total))
	a, err := o1.Item("a")
	require.NoError(t, err)
	require.Equal(t, domain.ItemPending, a.Status)
	require.Empty(t, a.StatusHistory)

	o2, err := store.Get(ctx, "o2")
	require.NoError(t, err)
	require.Equal(t, now, o2.CreatedAt)
}

func TestLoadSkipsExistingOrders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()

	_, err := Load(ctx, store, []byte(fixture), now)
	require.NoError(t, err)
	n, err := Load(ctx, store, []byte(fixture), now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLoadRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"price":    "orders:\n  - id: o1\n    items:\n      - {id: a, price: abc, quantity: 1}\n",
		"quantity": "orders:\n  - id: o1\n    items:\n      - {id: a, price: \"1\", quantity: 0}\n",
		"no items": "orders:\n  - id: o1\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(context.Background(), memory.NewOrderStore(), []byte(raw), now)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	n, err := LoadFile(context.Background(), memory.NewOrderStore(), path, now)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = LoadFile(context.Background(), memory.NewOrderStore(), filepath.Join(t.TempDir(), "missing.yaml"), now)
	require.Error(t, err)
}

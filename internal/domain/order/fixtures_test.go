package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func item(id string, price int64, qty int) Item {
	return Item{
		ID:         id,
		ProductID:  "prod-" + id,
		VariantSKU: "sku-" + id,
		Name:       "Item " + id,
		Price:      decimal.NewFromInt(price),
		Quantity:   qty,
	}
}

func newOrder(t *testing.T, items ...Item) *Order {
	t.Helper()
	o, err := New("ord-1", "1001", "cust-1", items, t0)
	require.NoError(t, err)
	return o
}

func withStatus(it Item, s ItemStatus) Item {
	it.Status = s
	return it
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func requireDecEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

//go:build integration

package redis

import (
	"context"
	"os"
	"testing"

	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	key := "test:settings:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key) })

	s := NewSettings(client, key, settings.Thresholds{MinimumItemCount: 1})
	got, err := s.Thresholds(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got.MinimumItemCount)

	require.NoError(t, s.Set(ctx, settings.Thresholds{MinimumOrderAmount: decimal.NewFromInt(300), MinimumItemCount: 4}))
	got, err = s.Thresholds(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, got.MinimumItemCount)
	require.True(t, got.MinimumOrderAmount.Equal(decimal.NewFromInt(300)))
}

func TestAvailabilityProductMarkCoversVariants(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	key := "test:unavailable:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key) })

	a := NewAvailability(client, key)
	require.NoError(t, a.MarkUnavailable(ctx, dominventory.Ref{ProductID: "p1"}))
	require.NoError(t, a.MarkUnavailable(ctx, dominventory.Ref{ProductID: "p1"}))

	hit, err := a.IsUnavailable(ctx, dominventory.Ref{ProductID: "p1", VariantSKU: "red"})
	require.NoError(t, err)
	require.True(t, hit)
	hit, err = a.IsUnavailable(ctx, dominventory.Ref{ProductID: "p2"})
	require.NoError(t, err)
	require.False(t, hit)

	n, err := client.SCard(ctx, key).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

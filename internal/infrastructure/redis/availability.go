package redis

import (
	"context"
	"fmt"

	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	"github.com/redis/go-redis/v9"
)

const DefaultAvailabilityKey = "dropship:inventory:unavailable"

// Availability keeps unavailable products in one set; members are Ref keys.
type Availability struct {
	client redis.UniversalClient
	key    string
}

func NewAvailability(client redis.UniversalClient, key string) *Availability {
	if key == "" {
		key = DefaultAvailabilityKey
	}
	return &Availability{client: client, key: key}
}

// MarkUnavailable is idempotent: SADD of an existing member is a no-op.
func (a *Availability) MarkUnavailable(ctx context.Context, ref dominventory.Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if err := a.client.SAdd(ctx, a.key, ref.Key()).Err(); err != nil {
		return fmt.Errorf("redis: mark %s unavailable: %w", ref.Key(), err)
	}
	return nil
}

// IsUnavailable also honours a product-wide mark when asked about a variant.
func (a *Availability) IsUnavailable(ctx context.Context, ref dominventory.Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	members := []any{ref.Key()}
	if ref.VariantSKU != "" {
		members = append(members, dominventory.Ref{ProductID: ref.ProductID}.Key())
	}
	hits, err := a.client.SMIsMember(ctx, a.key, members...).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check %s: %w", ref.Key(), err)
	}
	for _, hit := range hits {
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// Package redis backs the threshold settings and the inventory availability set.
package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	DefaultSettingsKey = "dropship:settings:thresholds"

	fieldMinimumOrderAmount = "minimumOrderAmount"
	fieldMinimumItemCount   = "minimumItemCount"
)

// Settings reads the threshold hash on every call so admin edits apply immediately.
// Missing fields fall back to the configured defaults.
type Settings struct {
	client   redis.UniversalClient
	key      string
	defaults settings.Thresholds
}

func NewSettings(client redis.UniversalClient, key string, defaults settings.Thresholds) *Settings {
	if key == "" {
		key = DefaultSettingsKey
	}
	return &Settings{client: client, key: key, defaults: defaults}
}

func (s *Settings) Thresholds(ctx context.Context) (settings.Thresholds, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return settings.Thresholds{}, fmt.Errorf("redis: read %s: %w", s.key, err)
	}
	return parseThresholds(fields, s.defaults)
}

// Set writes both fields; used by seeding and admin tooling.
func (s *Settings) Set(ctx context.Context, t settings.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key,
		fieldMinimumOrderAmount, t.MinimumOrderAmount.String(),
		fieldMinimumItemCount, strconv.Itoa(t.MinimumItemCount),
	).Err()
}

func parseThresholds(fields map[string]string, defaults settings.Thresholds) (settings.Thresholds, error) {
	t := defaults
	if v, ok := fields[fieldMinimumOrderAmount]; ok && v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return settings.Thresholds{}, fmt.Errorf("%w: %s %q", settings.ErrInvalid, fieldMinimumOrderAmount, v)
		}
		t.MinimumOrderAmount = amount
	}
	if v, ok := fields[fieldMinimumItemCount]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return settings.Thresholds{}, fmt.Errorf("%w: %s %q", settings.ErrInvalid, fieldMinimumItemCount, v)
		}
		t.MinimumItemCount = n
	}
	if err := t.Validate(); err != nil {
		return settings.Thresholds{}, err
	}
	return t, nil
}

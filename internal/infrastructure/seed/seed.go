// Package seed loads placed orders from a YAML fixture into an order store.
// Order placement happens upstream; this is how a fresh store gets orders to work on.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Inserter is implemented by every order store.
type Inserter interface {
	Insert(ctx context.Context, o *domain.Order) error
}

type file struct {
	Orders []order `yaml:"orders"`
}

type order struct {
	ID          string    `yaml:"id"`
	OrderNumber string    `yaml:"orderNumber"`
	CustomerID  string    `yaml:"customerId"`
	CreatedAt   time.Time `yaml:"createdAt"`
	Items       []item    `yaml:"items"`
}

type item struct {
	ID         string `yaml:"id"`
	ProductID  string `yaml:"productId"`
	VariantSKU string `yaml:"variantSku"`
	Name       string `yaml:"name"`
	Price      string `yaml:"price"`
	Quantity   int    `yaml:"quantity"`
}

// LoadFile reads path and inserts its orders. See Load.
func LoadFile(ctx context.Context, dst Inserter, path string, now time.Time) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Load(ctx, dst, raw, now)
}

// Load inserts every order in raw and returns how many were new. Orders that already exist are
// skipped so a persistent store can be seeded on every start.
func Load(ctx context.Context, dst Inserter, raw []byte, now time.Time) (int, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("seed: parse: %w", err)
	}

	inserted := 0
	for _, so := range f.Orders {
		o, err := so.build(now)
		if err != nil {
			return inserted, fmt.Errorf("seed: order %s: %w", so.ID, err)
		}
		err = dst.Insert(ctx, o)
		switch {
		case errors.Is(err, domain.ErrConflict):
			continue
		case err != nil:
			return inserted, fmt.Errorf("seed: insert %s: %w", so.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

func (so order) build(now time.Time) (*domain.Order, error) {
	items := make([]domain.Item, len(so.Items))
	for i, si := range so.Items {
		price, err := decimal.NewFromString(si.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s price %q", domain.ErrValidation, si.ID, si.Price)
		}
		items[i] = domain.Item{
			ID:         si.ID,
			ProductID:  si.ProductID,
			VariantSKU: si.VariantSKU,
			Name:       si.Name,
			Price:      price,
			Quantity:   si.Quantity,
		}
	}
	createdAt := so.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return domain.New(so.ID, so.OrderNumber, so.CustomerID, items, createdAt)
}

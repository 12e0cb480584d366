package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRef = errors.New("inventory: invalid product reference")

// Ref addresses a product, or a single variant of it when VariantSKU is set.
type Ref struct {
	ProductID  string
	VariantSKU string
}

// Key is the idempotency key used by availability stores.
func (r Ref) Key() string {
	if r.VariantSKU == "" {
		return r.ProductID
	}
	return r.ProductID + "#" + r.VariantSKU
}

func (r Ref) Validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidRef)
	}
	return nil
}

// Availability is the catalog side-channel. MarkUnavailable must be idempotent per Ref.
type Availability interface {
	MarkUnavailable(ctx context.Context, ref Ref) error
	IsUnavailable(ctx context.Context, ref Ref) (bool, error)
}

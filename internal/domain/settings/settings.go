package settings

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("settings: invalid thresholds")

// Thresholds are the minimum-order floors operators tune at runtime.
type Thresholds struct {
	MinimumOrderAmount decimal.Decimal
	MinimumItemCount   int
}

func (t Thresholds) Validate() error {
	if t.MinimumOrderAmount.IsNegative() || t.MinimumItemCount < 0 {
		return ErrInvalid
	}
	return nil
}

// Source is read on every call so changes apply without a deploy.
type Source interface {
	Thresholds(ctx context.Context) (Thresholds, error)
}

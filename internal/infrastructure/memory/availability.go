package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
)

// Availability keeps the unavailable product set in memory.
type Availability struct {
	mu          sync.RWMutex
	unavailable map[string]domain.Ref
}

func NewAvailability() *Availability {
	return &Availability{unavailable: make(map[string]domain.Ref)}
}

func (a *Availability) MarkUnavailable(ctx context.Context, ref domain.Ref) error {
	_ = ctx
	if err := ref.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unavailable[ref.Key()] = ref
	return nil
}

func (a *Availability) IsUnavailable(ctx context.Context, ref domain.Ref) (bool, error) {
	_ = ctx
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.unavailable[ref.Key()]; ok {
		return true, nil
	}
	// a whole-product mark covers every variant
	_, ok := a.unavailable[ref.ProductID]
	return ok, nil
}

// Len reports how many distinct products or variants are marked.
func (a *Availability) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.unavailable)
}

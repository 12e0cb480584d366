package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
)

// Settings is a mutable in-process threshold source.
type Settings struct {
	mu sync.RWMutex
	t  settings.Thresholds
}

func NewSettings(t settings.Thresholds) *Settings {
	return &Settings{t: t}
}

func (s *Settings) Thresholds(ctx context.Context) (settings.Thresholds, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t, nil
}

func (s *Settings) Set(t settings.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
	return nil
}

package outbox

import (
	"context"
	"errors"

	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
)

// Fanout hands every event to each publisher in order and joins their errors.
type Fanout []domoutbox.Publisher

func NewFanout(pubs ...domoutbox.Publisher) Fanout {
	out := make(Fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f Fanout) Publish(ctx context.Context, e domoutbox.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

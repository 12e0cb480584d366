package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type partitionKeyer interface {
	PartitionKey() string
}

// Subscriber decorates another subscriber so every handler runs with an event-scoped logger.
type Subscriber struct {
	next domoutbox.Subscriber
	base observability.Logger
}

var _ domoutbox.Subscriber = (*Subscriber)(nil)

func NewSubscriber(next domoutbox.Subscriber, base observability.Logger, tel observability.Observability) *Subscriber {
	if tel == nil {
		tel = observability.Nop()
	}
	if base == nil {
		base = tel.Logger()
	}
	return &Subscriber{next: next, base: base}
}

func (s *Subscriber) Subscribe(eventName string, h domoutbox.Handler) {
	s.next.Subscribe(eventName, func(ctx context.Context, e domoutbox.Event) error {
		attrs := map[string]string{"event": e.EventName()}
		if k, ok := e.(partitionKeyer); ok {
			attrs["aggregate_id"] = k.PartitionKey()
		}
		sc := trace.SpanContextFromContext(ctx)
		return h(WithEventContext(ctx, s.base, sc.TraceID(), sc.SpanID(), attrs), e)
	})
}

// WithEventContext injects an event-scoped logger for background executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes such as "event".
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = logctx.FromOr(ctx, observability.NopLogger())
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := make([]observability.Field, 0, len(attrs)+3)
	fields = append(fields, observability.F("event_id", evtID))
	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}
	return logctx.With(ctx, base.With(fields...))
}

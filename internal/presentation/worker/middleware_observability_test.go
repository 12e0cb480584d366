package workerpresentation

import (
	"context"
	"sync"
	"testing"

	domorder "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type handlerMap map[string]domoutbox.Handler

func (m handlerMap) Subscribe(name string, h domoutbox.Handler) { m[name] = h }

type fieldLogger struct {
	mu     *sync.Mutex
	fields map[string]any
}

func newFieldLogger() *fieldLogger {
	return &fieldLogger{mu: &sync.Mutex{}, fields: map[string]any{}}
}

func (l *fieldLogger) With(fields ...observability.Field) observability.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &fieldLogger{mu: l.mu, fields: make(map[string]any, len(l.fields)+len(fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

func (*fieldLogger) Debug(string, ...observability.Field) {}
func (*fieldLogger) Info(string, ...observability.Field)  {}
func (*fieldLogger) Warn(string, ...observability.Field)  {}
func (*fieldLogger) Error(string, ...observability.Field) {}

func TestSubscriberInjectsEventLogger(t *testing.T) {
	handlers := handlerMap{}
	sub := NewSubscriber(handlers, newFieldLogger(), nil)

	var got map[string]any
	sub.Subscribe(domorder.EventItemCancelled, func(ctx context.Context, _ domoutbox.Event) error {
		l, ok := logctx.From(ctx).(*fieldLogger)
		require.True(t, ok)
		got = l.fields
		return nil
	})

	h := handlers[domorder.EventItemCancelled]
	require.NotNil(t, h)
	require.NoError(t, h(context.Background(), domorder.ItemCancelledEvent{OrderID: "o1", ItemID: "a"}))

	require.Equal(t, domorder.EventItemCancelled, got["event"])
	require.Equal(t, "o1", got["aggregate_id"])
	require.NotEmpty(t, got["event_id"])
	require.NotContains(t, got, "trace_id")
}

func TestWithEventContextKeepsProvidedEventID(t *testing.T) {
	ctx := WithEventContext(context.Background(), newFieldLogger(), trace.TraceID{}, trace.SpanID{}, map[string]string{"event_id": "evt-1", "shard": ""})
	l := logctx.From(ctx).(*fieldLogger)
	require.Equal(t, "evt-1", l.fields["event_id"])
	require.NotContains(t, l.fields, "shard")
}

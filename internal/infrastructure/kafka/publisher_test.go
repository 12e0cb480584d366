package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishBuildsKeyedMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	w := &fakeWriter{}
	p := NewPublisher(w, "dropship.")
	p.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	evt := domain.ItemStatusChangedEvent{OrderID: "o1", ItemID: "a", From: domain.ItemPending, To: domain.ItemOrdered}
	require.NoError(t, p.Publish(ctx, evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "dropship.order.item_status_changed", msg.Topic)
	require.Equal(t, "o1", string(msg.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "ordered", decoded["to"])

	carrier := headerCarrier{headers: &msg.Headers}
	require.Equal(t, domain.EventItemStatusChanged, carrier.Get(headerEventName))
	require.Contains(t, carrier.Get("traceparent"), sc.TraceID().String())
}

func TestPublishWrapsWriterError(t *testing.T) {
	cause := errors.New("leader not available")
	p := NewPublisher(&fakeWriter{err: cause}, "")
	err := p.Publish(context.Background(), domain.RefundProcessedEvent{OrderID: "o1", RefundID: "rf_1"})
	require.ErrorIs(t, err, cause)
	require.Equal(t, domain.EventRefundProcessed, p.Topic(domain.EventRefundProcessed))
}

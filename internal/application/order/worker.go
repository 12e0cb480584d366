package order

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	workerService = "order-status-sync"
	// SystemActor is recorded on timeline entries written by the status sync worker.
	SystemActor = "system:status-sync"
)

// StatusApplier is the slice of ApplySuggestedStatusUseCase the worker needs.
type StatusApplier interface {
	Execute(ctx context.Context, cmd ApplySuggestedStatusCommand) (*StatusResult, error)
}

// Worker keeps the order status in step with its items when auto-apply is enabled.
type Worker struct {
	apply      StatusApplier
	subscriber domoutbox.Subscriber
	enabled    bool
	tel        observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(
	apply StatusApplier,
	subscriber domoutbox.Subscriber,
	enabled bool,
	tel observability.Observability,
) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		apply:        apply,
		subscriber:   subscriber,
		enabled:      enabled,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if !w.enabled || w.subscriber == nil || w.apply == nil {
		return
	}
	w.subscriber.Subscribe(domorder.EventItemStatusChanged, w.handleItemChanged)
	w.subscriber.Subscribe(domorder.EventItemSupplierOrdered, w.handleItemChanged)
	w.subscriber.Subscribe(domorder.EventItemCancelled, w.handleItemChanged)
}

func orderIDOf(e domoutbox.Event) (string, bool) {
	switch evt := e.(type) {
	case domorder.ItemStatusChangedEvent:
		return evt.OrderID, true
	case domorder.ItemSupplierOrderedEvent:
		return evt.OrderID, true
	case domorder.ItemCancelledEvent:
		return evt.OrderID, true
	}
	return "", false
}

func (w *Worker) handleItemChanged(ctx context.Context, e domoutbox.Event) error {
	const useCase = "order.worker.status_sync"
	orderID, ok := orderIDOf(e)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	ctx, span := w.tel.Tracer().Start(ctx, spanPrefix+"StatusSync",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, status := "success", "OK"

	logger := logctx.From(ctx)
	if logger == nil {
		logger = w.log
	}
	logger = logger.With(
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
		observability.F("order_id", orderID),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	defer func() {
		lat := time.Since(start).Seconds()
		w.observe(useCase, outcome, lat)
		logger.Info("use_case_done",
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		)
		if outcome == "error" {
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	res, err := w.apply.Execute(ctx, ApplySuggestedStatusCommand{OrderID: orderID, Actor: SystemActor})
	if err != nil {
		outcome, status = "error", ErrorCode(err)
		span.RecordError(err)
		return err
	}
	if !res.Applied {
		status = "NO_SUGGESTION"
		return nil
	}
	status = "STATUS_APPLIED"
	span.SetAttributes(attribute.String("order.status", string(res.Status)))
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	if w.reqCounter != nil {
		w.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
	}
}

func (w *Worker) observe(useCase string, outcome string, latencySeconds float64) {
	w.count(useCase, outcome)
	if w.durHistogram != nil {
		w.durHistogram.Observe(latencySeconds,
			observability.L("use_case", useCase),
		)
	}
}

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService     = "order-service"
	spanPrefix       = "UC."
	publishPeer      = "outbox"
	settingsPeer     = "settings"
	inventoryPeer    = "inventory"
	publishTimeout   = 300 * time.Millisecond
	inventoryTimeout = 2 * time.Second
)

// base carries the dependencies and RED instruments every use case shares.
type base struct {
	deps Dependencies
	tel  observability.Observability

	// Base logger with fixed fields prebound (vendor must remain hidden).
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}

	transitions observability.Counter // item_transitions_total{from,to}
	refunds     observability.Counter // refunds_created_total
	conflicts   observability.Counter // version_conflicts_total{use_case}
}

func newBase(deps Dependencies) base {
	deps = deps.withDefaults()
	m := deps.Tel.Metrics()
	return base{
		deps:         deps,
		tel:          deps.Tel,
		log:          deps.Tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
		transitions:  m.Counter(observability.MItemTransitions),
		refunds:      m.Counter(observability.MRefundsCreated),
		conflicts:    m.Counter(observability.MVersionConflicts),
	}
}

// execution tracks one use case run from span start to the use_case_done record.
type execution struct {
	useCase string
	span    trace.Span
	logger  observability.Logger
	start   time.Time
	status  string
	fields  []observability.Field

	publishErr error
}

func (b *base) begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *execution) {
	logger := logctx.FromOr(ctx, b.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := b.tel.Tracer().Start(ctx, spanPrefix+spanName, attrs...)
	ctx = logctx.With(ctx, logger)
	return ctx, &execution{
		useCase: useCase,
		span:    span,
		logger:  logger,
		start:   time.Now(),
	}
}

// field adds a key to the final use_case_done record.
func (x *execution) field(k string, v any) {
	x.fields = append(x.fields, observability.F(k, v))
}

func (b *base) finish(ctx context.Context, x *execution, err error) {
	lat := time.Since(x.start).Seconds()
	outcome, statusText := "success", ErrorCode(err)
	if err != nil {
		outcome = "error"
	} else if x.status != "" {
		statusText = x.status
	}

	if x.span != nil {
		if err != nil {
			x.span.RecordError(err)
			x.span.SetStatus(codes.Error, statusText)
		} else {
			x.span.SetStatus(codes.Ok, statusText)
		}
		x.span.End()
	}

	b.reqCounter.Add(1,
		observability.L("use_case", x.useCase),
		observability.L("outcome", outcome),
	)
	b.durHistogram.Observe(lat,
		observability.L("use_case", x.useCase),
	)
	if errors.Is(err, domain.ErrVersionConflict) {
		b.conflicts.Add(1, observability.L("use_case", x.useCase))
	}

	fields := append([]observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", lat),
	}, x.fields...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if x.publishErr != nil {
		fields = append(fields, observability.F("event_publish_error", x.publishErr.Error()))
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	x.logger.Info("use_case_done", fields...)
}

// publish hands events to the outbox best-effort; a failure is recorded, never returned.
func (b *base) publish(ctx context.Context, x *execution, events ...domoutbox.Event) {
	if b.deps.Publisher == nil {
		return
	}
	for _, e := range events {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		pubStart := time.Now()
		pubOutcome := "success"

		err := b.deps.Publisher.Publish(pubCtx, e)
		if err != nil {
			pubOutcome = "error"
			x.status = "EVENT_PUBLISH_FAILED"
		} else if pubCtx.Err() != nil {
			pubOutcome = "canceled"
			err = pubCtx.Err()
			x.status = "EVENT_PUBLISH_TIMEOUT"
		}
		cancel()

		b.external(publishPeer, e.EventName(), pubOutcome, pubStart)
		if err != nil {
			x.publishErr = err
			if x.span != nil {
				x.span.RecordError(err)
			}
		}
	}
}

func (b *base) external(peer, endpoint, outcome string, start time.Time) {
	b.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	b.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// thresholds reads the minimum-order settings at call time.
func (b *base) thresholds(ctx context.Context) (domainThresholds, error) {
	if b.deps.Settings == nil {
		return domainThresholds{}, nil
	}
	start := time.Now()
	t, err := b.deps.Settings.Thresholds(ctx)
	if err != nil {
		b.external(settingsPeer, "thresholds", "error", start)
		return domainThresholds{}, fmt.Errorf("%w: %w", ErrSettings, err)
	}
	b.external(settingsPeer, "thresholds", "success", start)
	return domainThresholds{count: t.MinimumItemCount, amount: t.MinimumOrderAmount}, nil
}

func (b *base) countTransition(from, to domain.ItemStatus) {
	b.transitions.Add(1,
		observability.L("from", string(from)),
		observability.L("to", string(to)),
	)
}

// commitChecked re-reads the persisted version and commits only when it still matches.
func commitChecked(ctx context.Context, tx domain.Tx, o *domain.Order, expected int64) error {
	current, err := tx.CurrentVersion(ctx, o.ID)
	if err != nil {
		return err
	}
	if current != expected {
		return fmt.Errorf("%w: order %s at version %d, expected %d", domain.ErrVersionConflict, o.ID, current, expected)
	}
	return tx.Commit(ctx, o, expected)
}

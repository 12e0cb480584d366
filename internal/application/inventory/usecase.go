package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	dominv "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	inventoryService         = "inventory-service"
	useCaseCheckAvailability = "inventory.check_availability"
	spanName                 = "UC.CheckAvailability"
	availabilityPeer         = "inventory"
	endpointIsUnavailable    = "is_unavailable"
	lookupTimeout            = 2 * time.Second
)

type CheckAvailabilityQuery struct {
	ProductID  string
	VariantSKU string
}

// AvailabilityResult reports whether the product (or variant) was marked unavailable by a supplier run.
type AvailabilityResult struct {
	ProductID   string
	VariantSKU  string
	Unavailable bool
}

// CheckAvailabilityUseCase reads the availability side-channel written by supplier purchases.
type CheckAvailabilityUseCase struct {
	availability dominv.Availability
	log          observability.Logger
	tracer       observability.Tracer
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewCheckAvailabilityUseCase(availability dominv.Availability, tel observability.Observability) *CheckAvailabilityUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &CheckAvailabilityUseCase{
		availability: availability,
		log:          tel.Logger().With(observability.F("service", inventoryService)),
		tracer:       tel.Tracer(),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (uc *CheckAvailabilityUseCase) Execute(ctx context.Context, q CheckAvailabilityQuery) (_ *AvailabilityResult, err error) {
	ref := dominv.Ref{ProductID: q.ProductID, VariantSKU: q.VariantSKU}
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCheckAvailability),
		observability.F("product_id", ref.ProductID),
	)
	ctx, span := uc.tracer.Start(ctx, spanName,
		attribute.String("use_case", useCaseCheckAvailability),
		attribute.String("product.id", ref.ProductID),
		attribute.String("product.variant_sku", ref.VariantSKU),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCheckAvailability),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency, observability.L("use_case", useCaseCheckAvailability))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if err = ref.Validate(); err != nil {
		statusText = "VALIDATION_FAILED"
		return nil, fmt.Errorf("%w: %w", domorder.ErrValidation, err)
	}
	if uc.availability == nil {
		return &AvailabilityResult{ProductID: ref.ProductID, VariantSKU: ref.VariantSKU}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	callStart := time.Now()
	unavailable, err := uc.availability.IsUnavailable(lookupCtx, ref)
	uc.external(callStart, err)
	if err != nil {
		statusText = "AVAILABILITY_LOOKUP_FAILED"
		if errors.Is(err, context.DeadlineExceeded) {
			statusText = "AVAILABILITY_LOOKUP_TIMEOUT"
		}
		return nil, fmt.Errorf("inventory: availability lookup: %w", err)
	}
	return &AvailabilityResult{ProductID: ref.ProductID, VariantSKU: ref.VariantSKU, Unavailable: unavailable}, nil
}

func (uc *CheckAvailabilityUseCase) external(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", availabilityPeer),
		observability.L("endpoint", endpointIsUnavailable),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", availabilityPeer),
		observability.L("endpoint", endpointIsUnavailable),
	)
}

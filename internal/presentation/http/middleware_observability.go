package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerRequestID = "X-Request-ID"
	headerActorID   = "X-Actor-ID"
	tracerName      = "dropship.http"
)

// ObservabilityMiddleware combines:
// - W3C trace context extraction and a server span per request
// - X-Request-ID generation + echo
// - request-scoped logger injection (dynamic fields only)
// - HTTP RED metrics labelled by the chi route pattern
// - one http_access record
func ObservabilityMiddleware(base observability.Logger, tel observability.Observability) func(http.Handler) http.Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if base == nil {
		base = tel.Logger()
	}
	requests := tel.Metrics().Counter(observability.MHTTPRequests)
	durations := tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	prop := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := otel.Tracer(tracerName).Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
				),
			)
			defer span.End()

			rid := r.Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)

			fields := []observability.Field{observability.F("request_id", rid)}
			if actor := r.Header.Get(headerActorID); actor != "" {
				fields = append(fields, observability.F("actor", actor))
			}
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				fields = append(fields,
					observability.F("trace_id", sc.TraceID().String()),
					observability.F("span_id", sc.SpanID().String()),
				)
			}
			reqLogger := base.With(fields...)
			ctx = logctx.With(ctx, reqLogger)

			lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lrw, r.WithContext(ctx))

			// the pattern is only known once chi has routed the request
			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", lrw.status),
			)
			if lrw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(lrw.status))
			}

			lat := time.Since(start)
			requests.Add(1,
				observability.L("method", r.Method),
				observability.L("route", route),
				observability.L("status", strconv.Itoa(lrw.status)),
			)
			durations.Observe(lat.Seconds(),
				observability.L("method", r.Method),
				observability.L("route", route),
			)
			reqLogger.Info("http_access",
				observability.F("method", r.Method),
				observability.F("route", route),
				observability.F("path", r.URL.Path),
				observability.F("status", lrw.status),
				observability.F("latency_ms", lat.Milliseconds()),
			)
		})
	}
}

// routePattern returns the low-cardinality chi template for r.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

type actorKey struct{}

// RequireActor rejects requests without an X-Actor-ID header and stores the actor on the context.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(headerActorID)
		if actor == "" {
			writeDomainError(w, apporder.ErrActor)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

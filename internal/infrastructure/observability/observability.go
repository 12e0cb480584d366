// Package observability assembles the vendor-neutral Observability port from zap, otel and prometheus.
package observability

import (
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
)

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

// instruments resolves metric keys to registered instruments; unknown keys get a no-op.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *instruments) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

// New assembles a provider from explicit instruments. Nil parts fall back to no-ops.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	m := &instruments{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, v := range counters {
		if v != nil {
			m.counters[k] = v
		}
	}
	for k, v := range histograms {
		if v != nil {
			m.histograms[k] = v
		}
	}
	return &provider{tracer: tracer, logger: logger, metrics: m}
}

// FromRegistry registers every known instrument on reg and assembles the provider.
func FromRegistry(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	counters, histograms := prometrics.Instruments(reg)
	return New(tracer, logger, counters, histograms)
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

package prometrics

import (
	"sync"

	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the subset of Prometheus registry functionality needed by the application.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	reg        prometheus.Registerer
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
	namespace  string
	subsystem  string
}

// New registers collectors on reg; nil means the process-wide default registerer.
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{reg: reg, namespace: namespace, subsystem: subsystem}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return &boundCounter{v: c.v, labels: labelMap(labels)}
}

type boundCounter struct {
	v      *prometheus.CounterVec
	labels prometheus.Labels
}

func (c *boundCounter) Add(d float64) {
	if c == nil || c.v == nil {
		return
	}
	c.v.With(c.labels).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return &boundHistogram{v: h.v, labels: labelMap(labels)}
}

type boundHistogram struct {
	v      *prometheus.HistogramVec
	labels prometheus.Labels
}

func (h *boundHistogram) Observe(v float64) {
	if h == nil || h.v == nil {
		return
	}
	h.v.With(h.labels).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	if v, ok := r.counters.Load(name); ok {
		return &counter{v: v.(*prometheus.CounterVec)}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	r.reg.MustRegister(cv)
	actual, _ := r.counters.LoadOrStore(name, cv)
	return &counter{v: actual.(*prometheus.CounterVec)}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	if v, ok := r.histograms.Load(name); ok {
		return &histogram{v: v.(*prometheus.HistogramVec)}
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	r.reg.MustRegister(hv)
	actual, _ := r.histograms.LoadOrStore(name, hv)
	return &histogram{v: actual.(*prometheus.HistogramVec)}
}

// Instruments registers every metric the service emits and returns them keyed for observability.New.
func Instruments(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests:  r.Counter(string(observability.MUsecaseRequests), "Use case executions by outcome.", "use_case", "outcome"),
		observability.MHTTPRequests:     r.Counter(string(observability.MHTTPRequests), "HTTP requests by route and status.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests), "Calls to external dependencies.", "peer", "endpoint", "outcome"),
		observability.MItemTransitions:  r.Counter(string(observability.MItemTransitions), "Committed item status transitions.", "from", "to"),
		observability.MRefundsCreated:   r.Counter(string(observability.MRefundsCreated), "Refund records created by item cancellation."),
		observability.MVersionConflicts: r.Counter(string(observability.MVersionConflicts), "Writes rejected by the optimistic version check.", "use_case"),
		observability.MEventsPublished:  r.Counter(string(observability.MEventsPublished), "Domain events handed to publishers.", "event", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration:         r.Histogram(string(observability.MUsecaseDuration), "Use case latency.", prometheus.DefBuckets, "use_case"),
		observability.MHTTPRequestDuration:     r.Histogram(string(observability.MHTTPRequestDuration), "HTTP request latency.", prometheus.DefBuckets, "method", "route"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration), "External call latency.", prometheus.DefBuckets, "peer", "endpoint"),
	}
	return counters, histograms
}

package observability

import (
	"net/http"

	"github.com/aretw0/stateguard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "stateguard"

// Metrics records engine events in Prometheus collectors.
type Metrics struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	validations *prometheus.CounterVec
	states      *prometheus.CounterVec
	parameters  prometheus.Histogram
	pages       prometheus.Counter
}

var _ ports.MetricsRecorder = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return newMetrics(reg, reg)
}

// NewMetricsWith registers the collectors in reg. It panics if they are already registered.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		registry: reg,
		gatherer: gatherer,
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "validations_total",
				Help:      "Validated requests by outcome and failure reason.",
			},
			[]string{"outcome", "reason"},
		),
		states: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "states_composed_total",
				Help:      "States committed, by scope.",
			},
			[]string{"scope"},
		),
		parameters: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "state_parameters",
				Help:      "Parameters recorded per committed state.",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		pages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "pages_stored_total",
				Help:      "Page writes to the store.",
			},
		),
	}
	reg.MustRegister(m.validations, m.states, m.parameters, m.pages)
	return m
}

// Validation counts a validated request.
func (m *Metrics) Validation(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.validations.WithLabelValues(outcome, reason).Inc()
}

// StateComposed counts a committed state.
func (m *Metrics) StateComposed(scope string, parameters int) {
	m.states.WithLabelValues(scope).Inc()
	m.parameters.Observe(float64(parameters))
}

// PageStored counts a page write.
func (m *Metrics) PageStored() {
	m.pages.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

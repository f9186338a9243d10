// Package metrics exports container activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/busybody/framework/container"
)

// Collector holds the container metrics and implements container.Observer.
type Collector struct {
	Resolutions *prometheus.CounterVec
	TaskScopes  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates a Collector registered on its own registry, together with the
// Go and process collectors.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(registry, registry)
}

// NewWith registers the metrics on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Collector {
	m := &Collector{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busybody_resolutions_total",
				Help: "Total number of container lookups by scope kind and outcome",
			},
			[]string{"scope", "outcome"},
		),
		TaskScopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busybody_task_scopes_live",
			Help: "Number of task scopes currently alive",
		}),
		gatherer: g,
	}
	reg.MustRegister(m.Resolutions, m.TaskScopes)
	return m
}

// ObserveResolve counts one lookup.
func (m *Collector) ObserveResolve(kind container.Kind, _ container.TypeKey, outcome container.Outcome) {
	m.Resolutions.WithLabelValues(kind.String(), string(outcome)).Inc()
}

// ObserveTaskScopes records the number of live task scopes.
func (m *Collector) ObserveTaskScopes(live int) {
	m.TaskScopes.Set(float64(live))
}

// Handler returns the Prometheus metrics handler
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// AngelaMos | 2026
// metrics.go

package core

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the license lifecycle counters exported at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	Activations  *prometheus.CounterVec
	Admissions   *prometheus.CounterVec
	Consumptions *prometheus.CounterVec
	RelayLatency *prometheus.HistogramVec
	Sessions     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "license_activations_total",
			Help:      "License activation attempts by tier and result.",
		}, []string{"tier", "result"}),
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "license_admissions_total",
			Help:      "Admission decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		Consumptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "license_consumptions_total",
			Help:      "Consumed question units by tier and resulting reason.",
		}, []string{"tier", "reason"}),
		RelayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_request_duration_seconds",
			Help:      "Completion relay latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"outcome"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "license_sessions_active",
			Help:      "Admission sessions held in memory.",
		}),
	}

	reg.MustRegister(
		m.Activations,
		m.Admissions,
		m.Consumptions,
		m.RelayLatency,
		m.Sessions,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Activation(tier, result string) {
	if tier == "" {
		tier = "unknown"
	}
	m.Activations.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) Admission(allowed bool, reason string) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	if reason == "" {
		reason = "none"
	}
	m.Admissions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) Consumption(tier, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.Consumptions.WithLabelValues(tier, reason).Inc()
}

func (m *Metrics) ObserveRelay(outcome string, d time.Duration) {
	m.RelayLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) SetSessions(n int) {
	m.Sessions.Set(float64(n))
}

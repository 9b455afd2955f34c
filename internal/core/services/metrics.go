package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's collectors on a private registry so tests and
// multiple instances never collide on the global one. All methods are safe
// on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	turns            *prometheus.CounterVec
	turnDuration     prometheus.Histogram
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	gatewayFallbacks *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partsdesk_turns_total",
				Help: "Processed chat turns by intent and decision source",
			},
			[]string{"intent", "source"},
		),
		turnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "partsdesk_turn_duration_seconds",
				Help:    "End-to-end turn duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partsdesk_tool_calls_total",
				Help: "Tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "partsdesk_tool_duration_seconds",
				Help:    "Tool execution time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"tool"},
		),
		gatewayFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "partsdesk_gateway_fallbacks_total",
				Help: "Turns that fell back to deterministic behavior, by reason",
			},
			[]string{"stage", "reason"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "partsdesk_active_sessions",
				Help: "Sessions with a turn in flight",
			},
		),
	}
}

func (m *Metrics) ObserveTurn(intent, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(intent, source).Inc()
	m.turnDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveTool(tool string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// GatewayFallback counts a deterministic fallback. stage is "decision" or
// "synthesis".
func (m *Metrics) GatewayFallback(stage, reason string) {
	if m == nil {
		return
	}
	m.gatewayFallbacks.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

func (m *Metrics) SessionFinished() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// Registry exposes the private registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

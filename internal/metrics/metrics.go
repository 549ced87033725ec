package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics covers document runs, chat turns, generator fallbacks and bus delivery.
// All methods are safe on a nil receiver.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsInFlight prometheus.Gauge
	fallbacks    *prometheus.CounterVec
	chatTurns    *prometheus.CounterVec
	busEvents    *prometheus.CounterVec
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditra",
			Subsystem: "orchestrator",
			Name:      "document_runs_total",
			Help:      "Document analysis runs by category and terminal status.",
		},
		[]string{"category", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auditra",
			Subsystem: "orchestrator",
			Name:      "document_run_duration_seconds",
			Help:      "Document analysis run duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"category", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "auditra",
			Subsystem: "orchestrator",
			Name:      "document_runs_in_flight",
			Help:      "Number of in-flight document analysis runs.",
		},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditra",
			Subsystem: "generator",
			Name:      "fallbacks_total",
			Help:      "Deterministic fallbacks used instead of AI output.",
		},
		[]string{"component", "reason"},
	)
	chatTurns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditra",
			Subsystem: "orchestrator",
			Name:      "chat_turns_total",
			Help:      "Conversation turns by outcome.",
		},
		[]string{"outcome"},
	)
	busEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditra",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Per-connection event deliveries by result.",
		},
		[]string{"type", "result"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, fallbacks, chatTurns, busEvents)

	return &PipelineMetrics{
		registry:     registry,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		runsInFlight: runsInFlight,
		fallbacks:    fallbacks,
		chatTurns:    chatTurns,
		busEvents:    busEvents,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartRun() {
	if m == nil {
		return
	}
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(category, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(category, status).Inc()
	m.runDuration.WithLabelValues(category, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) Fallback(component, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(component, reason).Inc()
}

func (m *PipelineMetrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) BusEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.busEvents.WithLabelValues(eventType, result).Inc()
}

// FallbackCounter exposes a fallback series for assertions. On a nil receiver it
// returns an unregistered counter.
func (m *PipelineMetrics) FallbackCounter(component, reason string) prometheus.Counter {
	if m == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: "unregistered_fallbacks_total"})
	}
	return m.fallbacks.WithLabelValues(component, reason)
}

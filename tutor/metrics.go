package tutor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus-compatible metrics for engine monitoring.
//
// Metrics exposed (namespaced "tutorgraph_"):
//
//   - sessions_active (gauge): sessions with a run loop currently executing.
//   - sessions_total (counter, label outcome): terminal outcomes observed
//     (suspended, completed, failed).
//   - stage_latency_ms (histogram, labels stage/status): capability
//     invocation duration.
//   - interrupts_total (counter, label kind): interrupts raised.
//   - retries_total (counter, label stage): transient retry attempts.
//   - events_total (counter, label type): events emitted.
//
// Expose via HTTP for scraping in application code:
//
//	registry := prometheus.NewRegistry()
//	metrics := tutor.NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	activeSessions prometheus.Gauge
	sessions       *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	interrupts     *prometheus.CounterVec
	retries        *prometheus.CounterVec
	events         *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics with the given
// registerer. Pass prometheus.DefaultRegisterer for the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "tutorgraph",
			Name:      "sessions_active",
			Help:      "Sessions with a run loop currently executing.",
		}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorgraph",
			Name:      "sessions_total",
			Help:      "Terminal run outcomes by type.",
		}, []string{"outcome"}),
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutorgraph",
			Name:      "stage_latency_ms",
			Help:      "Stage capability invocation duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"stage", "status"}),
		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorgraph",
			Name:      "interrupts_total",
			Help:      "Interrupts raised by kind.",
		}, []string{"kind"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorgraph",
			Name:      "retries_total",
			Help:      "Transient capability retry attempts by stage.",
		}, []string{"stage"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorgraph",
			Name:      "events_total",
			Help:      "Events emitted by type.",
		}, []string{"type"}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) runFinished(outcome string) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStage(stage Stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(string(stage), status).
		Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) interruptRaised(kind InterruptKind) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) retryAttempted(stage Stage) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) eventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

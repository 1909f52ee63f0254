package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contentflow/internal/content"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
)

const namespace = "contentflow"

// Stage outcomes recorded on StageRuns.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds every collector the daemon exports.
type Metrics struct {
	registry *prometheus.Registry

	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	RelayPosts    *prometheus.CounterVec
	RelayDuration *prometheus.HistogramVec
	QueueItems    *prometheus.GaugeVec
	EventClients  prometheus.Gauge
}

// New registers the collectors on a fresh registry along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_runs_total",
				Help:      "Stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of stage executions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
			[]string{"stage"},
		),
		RelayPosts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_posts_total",
				Help:      "Posting relay calls by method, platform and outcome",
			},
			[]string{"method", "platform", "outcome"},
		),
		RelayDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relay_post_duration_seconds",
				Help:      "Duration of posting relay calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		QueueItems: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_items",
				Help:      "Content items per queue status",
			},
			[]string{"status"},
		),
		EventClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_stream_clients",
				Help:      "Connected event stream subscribers",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RelayObserver adapts the collectors to the relay registry's observer hook.
func (m *Metrics) RelayObserver() relay.Observer {
	return func(method relay.Method, platform content.Platform, outcome string, elapsed time.Duration) {
		if m == nil {
			return
		}
		m.RelayPosts.WithLabelValues(string(method), string(platform), outcome).Inc()
		m.RelayDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	}
}

// SetQueueDepth publishes the latest per-status counts. Statuses missing
// from stats are reported as zero.
func (m *Metrics) SetQueueDepth(stats map[queue.Status]int) {
	if m == nil {
		return
	}
	for _, status := range queue.AllStatuses() {
		m.QueueItems.WithLabelValues(string(status)).Set(float64(stats[status]))
	}
}

// ClientConnected and ClientDisconnected track event stream subscribers.
func (m *Metrics) ClientConnected() {
	if m != nil {
		m.EventClients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.EventClients.Dec()
	}
}

package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		1, 5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000,
	}

	SessionsCreated = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_sessions_created_total",
			Help: "Session create attempts by outcome",
		},
		[]string{"outcome"},
	)

	ParticipantOps = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_participant_ops_total",
			Help: "Join and leave attempts by outcome",
		},
		[]string{"op", "outcome"},
	)

	Evictions = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_evictions_total",
			Help: "Sessions removed after their lifetime ended",
		},
		[]string{"path"}, // "read" or "sweep"
	)

	MirrorLookups = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_mirror_lookups_total",
			Help: "Mirror cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	Notifications = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_notifications_total",
			Help: "Notifications by kind and delivery state",
		},
		[]string{"kind", "state"},
	)

	SchedulerRunDuration = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitgate_scheduler_run_ms",
			Help:    "Duration of scheduler jobs in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"job"},
	)

	HTTPRequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitgate_http_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"method", "status"},
	)

	HTTPRequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitgate_http_latency_ms",
			Help:    "API request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"method"},
	)

	FeedConnections = promauto.With(registerer).NewGauge(
		prometheus.GaugeOpts{
			Name: "recruitgate_feed_connections",
			Help: "Open websocket feed connections",
		},
	)
)

type MetricsConfig struct {
	EnableLatency bool // API latency histogram
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency: true,
	}
}

var (
	Config   MetricsConfig
	initOnce sync.Once
)

func Initialize(cfg MetricsConfig) {
	Config = cfg
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
		prometheus.DefaultRegisterer = registry
		prometheus.DefaultGatherer = registry
	})
}

func Registry() *prometheus.Registry {
	return registry
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	AgentCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_call_latency_ms",
			Help:    "Agent service call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SearchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_latency_ms",
			Help:    "Hybrid search latency in milliseconds by ranking mode",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms to ~4s
		},
		[]string{"mode"},
	)

	EmailsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_ingested_total",
			Help: "Total number of emails extracted from uploaded archives",
		},
		[]string{"format", "status"}, // format: pst, eml, json; status: ok, failed
	)

	EmailsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_classified_total",
			Help: "Total number of emails classified",
		},
		[]string{"status"}, // status: success, fallback, failed
	)

	EventsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calendar_events_extracted_total",
			Help: "Total number of calendar events extracted from emails",
		},
	)

	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_chunks_indexed_total",
			Help: "Total number of RAG chunks embedded and stored",
		},
	)

	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of queries exceeding the slow-query threshold",
		},
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordAgentCallLatency(endpoint, status string, duration time.Duration) {
	AgentCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordSearchLatency(mode string, duration time.Duration) {
	SearchLatency.WithLabelValues(mode).Observe(float64(duration.Milliseconds()))
}

func IncrementSlowQuery() {
	SlowQueries.Inc()
}

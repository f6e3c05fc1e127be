// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests handled by the master API.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// TasksTotal counts tasks run by worker pools, by outcome.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_tasks_total",
			Help: "Total number of translation tasks processed by workers.",
		},
		[]string{"status"}, // success, construction_failed, decode_failed, panicked, rejected
	)

	// DecodeDuration observes wall time of a task on a worker, engine construction included.
	DecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "translation_task_duration_seconds",
			Help:    "Time spent running a translation task on a worker.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EnginesConstructed counts engines built, by model.
	EnginesConstructed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engines_constructed_total",
			Help: "Total number of decoding engines constructed.",
		},
		[]string{"task_id"},
	)

	// EngineConstructionFailures counts failed engine constructions, by model.
	EngineConstructionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_construction_failures_total",
			Help: "Total number of failed decoding engine constructions.",
		},
		[]string{"task_id"},
	)

	// EngineConstructionSeconds observes how long engine construction takes.
	EngineConstructionSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_construction_duration_seconds",
			Help:    "Time spent constructing a decoding engine.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	// ActiveEngines is the number of engines currently held by workers.
	ActiveEngines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_engines",
			Help: "Number of decoding engines currently held by workers.",
		},
	)

	// QueueDepth is the length of the task queue as last seen by a consumer.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of translation tasks waiting in the queue.",
		},
	)

	// RecordsPruned counts decode records removed by the maintenance job.
	RecordsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decode_records_pruned_total",
			Help: "Total number of finished decode records pruned.",
		},
	)

	// IsLeader marks whether this node is currently the leader.
	IsLeader = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "is_leader",
			Help: "Is this node currently the leader. 1 if leader, 0 otherwise.",
		},
		[]string{"node_id"},
	)
)

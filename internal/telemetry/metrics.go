package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FlowsIngested counts raw flow records accepted at the ingestion boundary
	FlowsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "flows_ingested_total",
			Help:      "Total number of raw flow records accepted for scoring",
		},
	)

	// FlowsRejected counts flow records dropped with a schema error
	FlowsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "flows_rejected_total",
			Help:      "Total number of flow records rejected at normalization",
		},
		[]string{"field"},
	)

	// ModelInvocations counts scoring calls dispatched per model version
	ModelInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "model_invocations_total",
			Help:      "Total number of model scoring invocations",
		},
		[]string{"version"},
	)

	// ModelFailures counts models excluded from fusion
	ModelFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "model_failures_total",
			Help:      "Total number of model invocations excluded from fusion",
		},
		[]string{"version", "reason"},
	)

	// ScoringLatency observes end-to-end ensemble scoring duration
	ScoringLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "netwarden",
			Name:      "scoring_latency_seconds",
			Help:      "Ensemble scoring latency per feature vector",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AnomaliesOpened counts newly created anomaly records
	AnomaliesOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "anomalies_opened_total",
			Help:      "Total number of anomaly records opened",
		},
		[]string{"category", "severity"},
	)

	// AnomaliesAbsorbed counts detections merged into open records
	AnomaliesAbsorbed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "anomalies_absorbed_total",
			Help:      "Total number of detections deduplicated into open anomaly records",
		},
	)

	// AlertsDispatched counts dispatcher outcomes
	AlertsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netwarden",
			Name:      "alerts_dispatched_total",
			Help:      "Total number of alert dispatch decisions by outcome",
		},
		[]string{"outcome"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(FlowsIngested)
		prometheus.DefaultRegisterer.Register(FlowsRejected)
		prometheus.DefaultRegisterer.Register(ModelInvocations)
		prometheus.DefaultRegisterer.Register(ModelFailures)
		prometheus.DefaultRegisterer.Register(ScoringLatency)
		prometheus.DefaultRegisterer.Register(AnomaliesOpened)
		prometheus.DefaultRegisterer.Register(AnomaliesAbsorbed)
		prometheus.DefaultRegisterer.Register(AlertsDispatched)
	})
}

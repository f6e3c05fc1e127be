package worker

import (
	"strconv"
	"time"

	"translation-dispatch/internal/metrics"
)

// metricsObserver exports engine lifecycle events to Prometheus.
type metricsObserver struct{}

func (metricsObserver) EngineConstructed(_ string, taskID int64, took time.Duration) {
	metrics.EnginesConstructed.WithLabelValues(strconv.FormatInt(taskID, 10)).Inc()
	metrics.EngineConstructionSeconds.Observe(took.Seconds())
	metrics.ActiveEngines.Inc()
}

func (metricsObserver) EngineConstructionFailed(_ string, taskID int64, _ error) {
	metrics.EngineConstructionFailures.WithLabelValues(strconv.FormatInt(taskID, 10)).Inc()
}

func (metricsObserver) EngineReleased(string) {
	metrics.ActiveEngines.Dec()
}

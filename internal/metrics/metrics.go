// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation names used as label values
const (
	OpStats     = "stats"
	OpTrend     = "trend"
	OpForecast  = "forecast"
	OpDetect    = "detect"
	OpRealTime  = "realtime"
	OpHistory   = "history"
	OpProfile   = "profile"
	OpMonitor   = "monitor"
	OpGRPC      = "grpc_analyze"
	statusError = "error"
)

var (
	// Analytics operations by outcome status (ok, insufficient_data, ..., error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsinsight_operations_total",
			Help: "Total number of analytics operations by outcome status",
		},
		[]string{"operation", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsinsight_operation_duration_seconds",
			Help:    "Analytics operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		},
		[]string{"operation"},
	)

	AnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsinsight_anomalies_total",
			Help: "Total number of anomalies flagged",
		},
		[]string{"method", "severity"},
	)

	// Monitor metrics
	MonitorMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsinsight_monitor_messages_total",
			Help: "Total number of observation messages handled by the monitor",
		},
		[]string{"status"}, // status: ok/decode_error/dropped/publish_error
	)

	MonitorSeries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsinsight_monitor_series",
			Help: "Number of series currently tracked by the monitor",
		},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsinsight_alerts_published_total",
			Help: "Total number of alerts published",
		},
		[]string{"status"}, // status: ok/error
	)

	// Profile store cache
	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsinsight_profile_cache_lookups_total",
			Help: "Profile cache lookups by result",
		},
		[]string{"result"}, // result: hit/miss
	)
)

// ObserveOperation records one operation with its outcome and duration
func ObserveOperation(operation, status string, start time.Time) {
	if status == "" {
		status = statusError
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry through fiber
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Package metrics exposes the board's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealboard_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealboard_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Store metrics
	StoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealboard_store_ops_total",
			Help: "Total number of row store operations by op and outcome",
		},
		[]string{"op", "status"},
	)

	// Board metrics
	WeekLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealboard_week_loads_total",
			Help: "Total number of week loads by mode (rows, carryover, empty)",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal,
		APIRequestDuration,
		StoreOpsTotal,
		WeekLoadsTotal,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStoreOp records one store operation outcome.
func ObserveStoreOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOpsTotal.WithLabelValues(op, status).Inc()
}

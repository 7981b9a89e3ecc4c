package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saldo_http_requests_total",
		Help: "Total number of HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saldo_http_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	settlementsCalculated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saldo_settlements_calculated_total",
		Help: "Total number of settlement calculations persisted.",
	})

	settlementsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saldo_settlements_completed_total",
		Help: "Total number of settlements marked as completed.",
	})
)

func observeRequest(method, path string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

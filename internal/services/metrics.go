package services

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewithmide/token-creator/internal/models"
)

var (
	registerOnce sync.Once

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_ops",
			Name:      "operations_total",
			Help:      "Token operations by kind and terminal status.",
		},
		[]string{"kind", "status"},
	)
	confirmationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "token_ops",
			Name:      "confirmation_seconds",
			Help:      "Time from submission to confirmed finality.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		},
		[]string{"kind"},
	)
	discoveryPlaceholders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "token_ops",
			Name:      "discovery_placeholders_total",
			Help:      "Token listing entries that fell back to a placeholder.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "token_ops",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "token_ops",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(operationsTotal, confirmationSeconds, discoveryPlaceholders, httpRequests, httpDuration)
	})
}

func RecordOperation(kind models.OperationKind, err error) {
	RegisterMetrics()
	operationsTotal.WithLabelValues(string(kind), Category(err)).Inc()
}

func RecordConfirmation(kind models.OperationKind, d time.Duration) {
	RegisterMetrics()
	confirmationSeconds.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func RecordPlaceholder() {
	RegisterMetrics()
	discoveryPlaceholders.Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

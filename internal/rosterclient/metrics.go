// metrics.go — Prometheus-метрики обращений к бэкенду.
package rosterclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы round-trip для лейбла outcome.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport"
	outcomeRejected  = "rejected"
)

var (
	// backendRequestsTotal — количество round-trip к бэкенду по операциям и исходам.
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sr_backend_requests_total",
			Help: "Общее количество запросов Staff Roster к бэкенду",
		},
		[]string{"operation", "outcome"},
	)

	// backendRequestDuration — длительность round-trip к бэкенду.
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sr_backend_request_duration_seconds",
			Help:    "Длительность запросов Staff Roster к бэкенду в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

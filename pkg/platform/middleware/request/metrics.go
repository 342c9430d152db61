package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permitcheck_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds by path and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "status"}),
	}
}

func (m *Metrics) ObserveRequest(path string, status int, durationSeconds float64) {
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(durationSeconds)
}

package devserver

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// serverMetrics - метрики локального сервера.
type serverMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	refresh  *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devserver_http_requests_total",
			Help: "HTTP requests served by the dev server.",
		}, []string{"method", "path", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devserver_http_request_duration_seconds",
			Help:    "HTTP request latency of the dev server.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devserver_refresh_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.requests, m.duration, m.refresh)

	return m
}

// ObserveRequest реализует middleware.Observer.
func (m *serverMetrics) ObserveRequest(method, path string, status int, dur time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(dur.Seconds())
}

func (m *serverMetrics) refreshed(outcome string) {
	m.refresh.WithLabelValues(outcome).Inc()
}

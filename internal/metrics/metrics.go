// metrics - Prometheus-метрики клиента на собственном реестре.
//
// Metrics реализует authcall.Observer и transport.Observer, поэтому подключается
// к обёртке и к HTTP-цепочке без адаптеров.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evgeniyfimushkin/event-planner/internal/session"
)

type Metrics struct {
	reg *prometheus.Registry

	refreshStarted prometheus.Counter
	refreshTotal   *prometheus.CounterVec
	retryTotal     *prometheus.CounterVec
	forcedLogout   prometheus.Counter
	authenticated  prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New регистрирует метрики в новом реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		refreshStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcall_refresh_started_total",
			Help: "Refresh requests actually sent to the auth endpoint.",
		}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcall_refresh_total",
			Help: "Finished refresh attempts by outcome.",
		}, []string{"outcome"}),
		retryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcall_retry_total",
			Help: "Retries of protected operations after an authorization failure.",
		}, []string{"reason"}),
		forcedLogout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcall_forced_logout_total",
			Help: "Calls that ended the session because authorization could not be restored.",
		}),
		authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "session_authenticated",
			Help: "1 when the client holds a token pair, 0 otherwise.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Outgoing HTTP requests by method and status code (0 - no response).",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Outgoing HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.refreshStarted, m.refreshTotal, m.retryTotal, m.forcedLogout, m.authenticated,
		m.httpRequests, m.httpDuration,
	)

	return m
}

// Registry возвращает реестр (для тестов и экспорта).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler - HTTP-обработчик /metrics для этого реестра.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) RefreshStarted()                { m.refreshStarted.Inc() }
func (m *Metrics) RefreshFinished(outcome string) { m.refreshTotal.WithLabelValues(outcome).Inc() }
func (m *Metrics) Retried(reason string)          { m.retryTotal.WithLabelValues(reason).Inc() }
func (m *Metrics) ForcedLogout()                  { m.forcedLogout.Inc() }

// ObserveHTTP учитывает исходящий запрос.
func (m *Metrics) ObserveHTTP(method string, status int, dur time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// SessionListener - слушатель session.Manager, ведущий gauge session_authenticated.
func (m *Metrics) SessionListener() session.Listener {
	return func(s session.State) {
		if s.Authenticated() {
			m.authenticated.Set(1)
			return
		}
		m.authenticated.Set(0)
	}
}

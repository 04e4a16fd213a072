package obs

import (
	"net/http"
	"strconv"
	"time"

	"referral-platform/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many instances as they like.
type Metrics struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	signups     *prometheus.CounterVec
	logins      *prometheus.CounterVec
	tokenChecks *prometheus.CounterVec
}

var _ auth.Recorder = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signups_total",
			Help: "Signup attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_checks_total",
			Help: "Access and refresh token verifications by outcome.",
		}, []string{"token", "outcome"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.signups,
		m.logins,
		m.tokenChecks,
	)
	return m
}

func (m *Metrics) Signup(outcome string) { m.signups.WithLabelValues(outcome).Inc() }
func (m *Metrics) Login(outcome string)  { m.logins.WithLabelValues(outcome).Inc() }

func (m *Metrics) TokenCheck(token auth.TokenType, outcome string) {
	m.tokenChecks.WithLabelValues(string(token), outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware measures request count, latency and in-flight requests per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

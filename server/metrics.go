package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rootFieldsTotal     *prometheus.CounterVec
	rootFieldDuration   *prometheus.HistogramVec
	lifecycleState      prometheus.Gauge
}

// NewMetrics creates and registers the collectors, prefixed with the service name.
func NewMetrics(serviceName string) *Metrics {
	prefix := strings.ReplaceAll(serviceName, "-", "_")

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		rootFieldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_graphql_root_fields_total",
				Help: "Resolved GraphQL root fields by outcome",
			},
			[]string{"field", "outcome"},
		),
		rootFieldDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_graphql_root_field_duration_seconds",
				Help:    "Time to resolve a GraphQL root field, database round trip included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"field"},
		),
		lifecycleState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_lifecycle_state",
			Help: "Pipeline state: 0 uninitialized, 1 initializing, 2 ready, 3 failed",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.rootFieldsTotal,
		m.rootFieldDuration,
		m.lifecycleState,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveField records one resolved root field.
func (m *Metrics) ObserveField(field, outcome string, elapsed time.Duration) {
	m.rootFieldsTotal.WithLabelValues(field, outcome).Inc()
	m.rootFieldDuration.WithLabelValues(field).Observe(elapsed.Seconds())
}

// SetState records the lifecycle state.
func (m *Metrics) SetState(s State) {
	m.lifecycleState.Set(float64(s))
}

// Middleware returns middleware that collects HTTP metrics
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// Package metrics exposes Prometheus collectors for the HTTP layer, the
// services and the storage engine.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they
// like without clashing on the global one.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	WritesTotal  *prometheus.CounterVec
	ExportsTotal *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		WritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Successful writes by entity and operation.",
		}, []string{"entity", "op"}),

		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "exports_total",
			Help:      "Report exports by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Write records a successful write. Safe on a nil Collector.
func (c *Collector) Write(entity, op string) {
	if c == nil {
		return
	}
	c.WritesTotal.WithLabelValues(entity, op).Inc()
}

// Export records a report export outcome. Safe on a nil Collector.
func (c *Collector) Export(err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ExportsTotal.WithLabelValues(outcome).Inc()
}

// WatchDB registers gauges reading the pool statistics of sqlDB at scrape
// time.
func (c *Collector) WatchDB(namespace string, sqlDB *sql.DB) {
	f := promauto.With(c.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "open_connections",
		Help:      "Current number of open database connections.",
	}, func() float64 { return float64(sqlDB.Stats().OpenConnections) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "in_use_connections",
		Help:      "Database connections currently in use.",
	}, func() float64 { return float64(sqlDB.Stats().InUse) })
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests. The
// path label is the route template so ids do not explode cardinality.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			c.InFlightGauge.Inc()
			defer c.InFlightGauge.Dec()

			start := time.Now()
			err := next(ec)
			if err != nil {
				ec.Error(err)
			}

			path := ec.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(ec.Response().Status)
			method := ec.Request().Method
			c.RequestsTotal.WithLabelValues(method, path, status).Inc()
			c.RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

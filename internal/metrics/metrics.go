// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "farmhub",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "farmhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions applied, by order kind and resulting status.",
		},
		[]string{"kind", "status"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: "events",
			Name:      "notifications_total",
			Help:      "Notification events by delivery path (broker, inline, failed, consumed).",
		},
		[]string{"path"},
	)

	exchangeMinutes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: "labor",
			Name:      "exchange_minutes_total",
			Help:      "Minutes credited between households, by transaction kind.",
		},
		[]string{"kind"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		orderTransitions,
		events,
		exchangeMinutes,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight gauge.  The
// route label is the Echo route template, so /orders/7 and /orders/8
// share one series.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			httpInFlight.Inc()
			start := time.Now()
			err := next(c)
			httpInFlight.Dec()

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordOrderTransition counts an applied order transition.
func RecordOrderTransition(kind, status string) {
	orderTransitions.WithLabelValues(kind, status).Inc()
}

// RecordEvent counts a notification event on the given delivery path.
func RecordEvent(path string) {
	events.WithLabelValues(path).Inc()
}

// RecordExchangeMinutes adds credited minutes for a ledger kind.
func RecordExchangeMinutes(kind string, minutes int64) {
	if minutes > 0 {
		exchangeMinutes.WithLabelValues(kind).Add(float64(minutes))
	}
}

// RecordJobRun counts one scheduled job execution.
func RecordJobRun(job string, success bool) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crestvault",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crestvault",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crestvault",
			Name:      "http_inflight_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// WebhookEventsTotal counts processor callbacks by processor and outcome
	// (processed, ignored, rejected). Incremented by the router's webhook
	// routes via the handler result.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crestvault",
			Name:      "webhook_events_total",
			Help:      "Payment processor callbacks by processor and outcome",
		},
		[]string{"processor", "outcome"},
	)

	// ProfitSweepRuns counts daily profit sweep executions by trigger
	ProfitSweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crestvault",
			Name:      "profit_sweep_runs_total",
			Help:      "Daily profit sweep executions by trigger (scheduler, manual)",
		},
		[]string{"trigger"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus
// metrics. The matched route template keeps label cardinality low.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

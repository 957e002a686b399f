package router

import (
	"strconv"
	"time"

	"github.com/akeren/sheet-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sheets round trips dominate signup latency, so buckets reach past the
// Google HTTP timeout.
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}

// mountMetrics serves a private registry on /metrics unless METRICS_ENABLED
// is false. Domain packages add their collectors through MetricsRegisterer.
func (rs *RouterService) mountMetrics() {
	if !utils.EnvBool("METRICS_ENABLED", true) {
		rs.logger.Info("Metrics disabled")
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rs.metricsRegistry = reg

	labels := []string{"method", "route", "status"}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheet_waitlist",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, labels)
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sheet_waitlist",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   latencyBuckets,
	}, labels)
	reg.MustRegister(requests, latency)

	rs.engine.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		values := []string{c.Request.Method, route, strconv.Itoa(c.Writer.Status())}
		requests.WithLabelValues(values...).Inc()
		latency.WithLabelValues(values...).Observe(time.Since(start).Seconds())
	})

	rs.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	rs.logger.Info("Metrics endpoint mounted", "path", "/metrics")
}

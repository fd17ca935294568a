// Package observability exposes prometheus metrics for the tracker.
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthOutcomesTotal counts authentication gate decisions.
// Outcomes: ok, missing_token, invalid_token.
var AuthOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tracker_auth_outcomes_total",
		Help: "Authentication gate decisions by outcome.",
	},
	[]string{"outcome"},
)

// RequestsTotal counts finished HTTP requests.
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "Finished HTTP requests by route and status code.",
	},
	[]string{"route", "status"},
)

// RequestDuration observes request latency per route.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tracker_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route"},
)

// Middleware records request count and latency. Routes without a
// registered pattern (404s) are grouped under "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Package metrics exposes Prometheus collectors for the API and worker processes.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lumen",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// BeaconsIngested counts stored analytics events by event name.
	BeaconsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "beacons_ingested_total",
		Help:      "Analytics beacons accepted and stored.",
	}, []string{"event"})

	// BeaconsRejected counts refused beacons by reason (validation, unknown_site, domain_mismatch).
	BeaconsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "beacons_rejected_total",
		Help:      "Analytics beacons rejected before storage.",
	}, []string{"reason"})

	// AuthzDenials counts access guard denials by kind (unauthorized, forbidden).
	AuthzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "authz_denials_total",
		Help:      "Requests denied by the workspace access guard.",
	}, []string{"kind"})

	// Invites counts invite transitions (issued, accepted, revoked, rate_limited).
	Invites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "invites_total",
		Help:      "Invite lifecycle transitions.",
	}, []string{"action"})

	// ExportJobs counts processed export jobs by outcome.
	ExportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "export_jobs_total",
		Help:      "Export jobs processed by the worker.",
	}, []string{"outcome"})

	// GeoLookups counts geolocation lookups by provider and result (hit, miss, error, cached).
	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lumen",
		Name:      "geo_lookups_total",
		Help:      "Client IP geolocation lookups.",
	}, []string{"provider", "result"})
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry for GET /metrics.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

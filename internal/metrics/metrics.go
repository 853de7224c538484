// Package metrics owns the Prometheus registry and the application's
// instruments. Every Record method is safe on a nil *Metrics so components
// can be constructed without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cocktail_club"

// Like toggle results.
const (
	LikeAdded     = "added"
	LikeRemoved   = "removed"
	LikeUnchanged = "unchanged"
)

// OAuth login outcomes.
const (
	OAuthLinked  = "linked"
	OAuthMatched = "matched_email"
	OAuthCreated = "created"
	OAuthFailed  = "failed"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	likeToggles    *prometheus.CounterVec
	oauthLogins    *prometheus.CounterVec
	likeRepairs    prometheus.Counter
	rateLimited    prometheus.Counter
	revokedPurged  prometheus.Counter
	upstreamErrors *prometheus.CounterVec
}

// New registers every instrument on a private registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_toggles_total",
			Help:      "Like add/remove requests by result.",
		}, []string{"result"}),
		oauthLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_logins_total",
			Help:      "OAuth logins by provider and outcome.",
		}, []string{"provider", "outcome"}),
		likeRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_count_repairs_total",
			Help:      "Cocktail like counters rewritten by reconciliation.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		revokedPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_sessions_purged_total",
			Help:      "Expired session revocations removed.",
		}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed calls to external services.",
		}, []string{"service"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.likeToggles,
		m.oauthLogins,
		m.likeRepairs,
		m.rateLimited,
		m.revokedPurged,
		m.upstreamErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLikeToggle(result string) {
	if m == nil {
		return
	}
	m.likeToggles.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordOAuthLogin(provider, outcome string) {
	if m == nil {
		return
	}
	m.oauthLogins.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordLikeRepairs(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.likeRepairs.Add(float64(n))
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) RecordRevocationsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.revokedPurged.Add(float64(n))
}

func (m *Metrics) RecordUpstreamError(service string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(service).Inc()
}

// Package metrics exposes prometheus collectors for the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by ObserveLogin.
const (
	LoginSuccess  = "success"
	LoginInvalid  = "invalid_credentials"
	LoginDisabled = "disabled"
	LoginLocked   = "locked"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LoginAttempts   *prometheus.CounterVec
	AccountLockouts prometheus.Counter
	ExportsTotal    *prometheus.CounterVec
}

// New creates a registry with the Go and process collectors plus the API metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "character_creator_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "character_creator_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "character_creator_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		AccountLockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "character_creator_account_lockouts_total",
			Help: "Accounts deactivated after too many failed logins",
		}),
		ExportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "character_creator_exports_total",
				Help: "Character exports by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.LoginAttempts, m.AccountLockouts, m.ExportsTotal)
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveRequest records one served HTTP request. A nil receiver is a no-op.
func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveLogin records a login outcome. A nil receiver is a no-op.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
	if outcome == LoginLocked {
		m.AccountLockouts.Inc()
	}
}

// ObserveExport records a character export attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveExport(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.ExportsTotal.WithLabelValues(status).Inc()
}

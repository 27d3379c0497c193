// Package metrics holds the Prometheus collector for provisioning, authentication and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "servicehub"

// Provisioning outcomes.
const (
	OutcomeSuccess                = "success"
	OutcomeInvalidInput           = "invalid_input"
	OutcomeIdentityCreationFailed = "identity_creation_failed"
	OutcomeProfileCreationFailed  = "profile_creation_failed"
	OutcomeCompensationFailed     = "compensation_failed"
)

// Collector is a prometheus.Collector for the API.
type Collector struct {
	provisioning  *prometheus.CounterVec
	authFailures  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		provisioning: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provisioning_total",
				Help:      "Registrations by outcome.",
			}, []string{"outcome"},
		),
		authFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_failures_total",
				Help:      "Rejected credentials by kind.",
			}, []string{"kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			}, []string{"method", "route", "status"},
		),
		httpDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, []string{"method", "route"},
		),
	}
}

// ProvisioningOutcome counts one registration attempt. Safe on a nil Collector.
func (c *Collector) ProvisioningOutcome(outcome string) {
	if c == nil {
		return
	}
	c.provisioning.WithLabelValues(outcome).Inc()
}

// AuthFailure counts one rejected credential. Safe on a nil Collector.
func (c *Collector) AuthFailure(kind string) {
	if c == nil {
		return
	}
	c.authFailures.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one completed request. route is the matched route template, not the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.provisioning.Describe(ch)
	c.authFailures.Describe(ch)
	c.httpRequests.Describe(ch)
	c.httpDurations.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.provisioning.Collect(ch)
	c.authFailures.Collect(ch)
	c.httpRequests.Collect(ch)
	c.httpDurations.Collect(ch)
}

// NewRegistry returns a registry holding c plus the Go runtime and process collectors.
func NewRegistry(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, col := range []prometheus.Collector{
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

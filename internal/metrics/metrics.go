// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus collectors for the server
type Metrics struct {
	// Registry for this instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Registry metrics
	TokenRequests *prometheus.CounterVec
	RateLimited   prometheus.Counter

	// Domain metrics
	WalletUpdates     *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry
func New() *Metrics {
	// Create a new registry to avoid conflicts with default registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{Registry: registry}

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palace_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	registry.MustRegister(m.HTTPRequests)

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "palace_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(m.HTTPDuration)

	m.TokenRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palace_token_requests_total",
		Help: "API token exchange and refresh requests by result",
	}, []string{"kind", "result"})
	registry.MustRegister(m.TokenRequests)

	m.RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "palace_rate_limited_total",
		Help: "Requests rejected by the per-IP budget",
	})
	registry.MustRegister(m.RateLimited)

	m.WalletUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palace_wallet_updates_total",
		Help: "Wallet transactions by outcome",
	}, []string{"outcome"})
	registry.MustRegister(m.WalletUpdates)

	m.WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "palace_webhook_deliveries_total",
		Help: "Discord webhook deliveries by kind and result",
	}, []string{"kind", "result"})
	registry.MustRegister(m.WebhookDeliveries)

	return m
}

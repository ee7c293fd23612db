package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every collector
const DefaultNamespace = "shopify_app"

// Result label values
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultDuplicate = "duplicate"
)

// Metrics holds the app's collectors
type Metrics struct {
	OAuthCompletions     *prometheus.CounterVec
	WebhookRegistrations *prometheus.CounterVec
	WebhooksReceived     *prometheus.CounterVec
	GraphQLProxyRequests *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing a fresh registry keeps tests isolated.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OAuthCompletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_completions_total",
			Help:      "OAuth callbacks by outcome.",
		}, []string{"result"}),
		WebhookRegistrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_registrations_total",
			Help:      "Webhook subscription attempts by topic and outcome.",
		}, []string{"topic", "result"}),
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Verified webhook deliveries by topic and outcome.",
		}, []string{"topic", "result"}),
		GraphQLProxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_proxy_requests_total",
			Help:      "Proxied Admin GraphQL requests by operation type and upstream status.",
		}, []string{"operation", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

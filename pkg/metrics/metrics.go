package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PINAttempts records admin PIN validations by result (success|failure|locked).
	PINAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guanago_pin_attempts_total",
			Help: "Total number of admin PIN validation attempts",
		},
		[]string{"result"},
	)

	// PINStrategyMatches counts which validation strategy produced a match.
	PINStrategyMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guanago_pin_strategy_matches_total",
			Help: "Admin PIN matches by strategy (static|remote_query|remote_scan)",
		},
		[]string{"strategy"},
	)

	// CatalogServes counts catalog reads by resource and data provenance.
	CatalogServes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guanago_catalog_serves_total",
			Help: "Catalog snapshots served by resource and source (remote|cache|fallback)",
		},
		[]string{"resource", "source"},
	)

	// AirtableRequests counts remote table requests by outcome.
	AirtableRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guanago_airtable_requests_total",
			Help: "Airtable REST requests by table and result (ok|error)",
		},
		[]string{"table", "result"},
	)

	// ActiveAdminSessions tracks admin sessions that are neither expired nor revoked.
	ActiveAdminSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guanago_active_admin_sessions",
			Help: "Number of active admin sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guanago_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

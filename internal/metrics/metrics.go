// Package metrics provides Prometheus metrics for the vault valuator.
// Scrape these at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "valuator_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Subgraph Metrics
	SubgraphRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuator_subgraph_requests_total",
			Help: "Total number of subgraph queries by operation and result",
		},
		[]string{"operation", "result"}, // result: "success", "http_error", "graphql_error", "transport_error"
	)

	SubgraphRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "valuator_subgraph_request_duration_seconds",
			Help:    "Subgraph query latency in seconds, including rate limiter wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	ReserveCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valuator_reserve_cache_hits_total",
			Help: "Reserve cache hit count",
		},
	)

	ReserveCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "valuator_reserve_cache_misses_total",
			Help: "Reserve cache miss count",
		},
	)

	// Valuation Metrics
	ValuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuator_valuations_total",
			Help: "Vault valuations computed, by APY status",
		},
		[]string{"apy_status"}, // "ok", "uninitialized", "undefined", "error"
	)

	ValuationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "valuator_valuation_duration_seconds",
			Help:    "End to end time to fetch inputs and value one vault",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	VaultTVLUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "valuator_vault_tvl_usd",
			Help: "Last computed TVL of a vault in USD",
		},
		[]string{"vault"},
	)

	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuator_quotes_total",
			Help: "Liquidity quotes served by kind",
		},
		[]string{"kind"}, // "swap", "add", "remove"
	)
)

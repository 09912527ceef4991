// Package metrics holds the prometheus collectors of the api and mirror services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestTotal counts HTTP requests by route template, method and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eosapi_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eosapi_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	// QueryDuration is the latency of collection queries by kind and operation (list, get).
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eosapi_query_duration_seconds",
			Help:    "Collection query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "op"},
	)
	// UpstreamTotal counts calls to the EOS node by call and status ("error" on transport failures).
	UpstreamTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eosapi_upstream_requests_total",
			Help: "Total number of requests to the EOS node",
		},
		[]string{"call", "status"},
	)
	// MirrorBlock is the last block mirrored per chain.
	MirrorBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eosapi_mirror_block",
			Help: "Last block written by the mirror",
		},
		[]string{"chain"},
	)
)

// Serve exposes the default registry on addr (ie. ":9100") at /metrics. It blocks like http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return http.ListenAndServe(addr, mux) //nolint:gosec // metrics endpoint
}

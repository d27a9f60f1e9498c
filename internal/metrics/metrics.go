// Package metrics exposes the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storymap",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storymap",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storymap",
		Name:      "votes_total",
		Help:      "Applied vote ledger operations by target table and operation.",
	}, []string{"target", "op"})

	VoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storymap",
		Name:      "vote_retries_total",
		Help:      "Vote transactions retried after a ledger unique violation.",
	}, []string{"target"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storymap",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by action.",
	}, []string{"action"})
)

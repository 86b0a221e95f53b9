package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgerelay_requests_total",
		Help: "Relay requests by terminal outcome.",
	}, []string{"outcome"})

	docCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgerelay_document_cache_total",
		Help: "Document cache outcomes per relayed document.",
	}, []string{"status"})

	segCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgerelay_segment_cache_total",
		Help: "Segment cache outcomes per relayed document.",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgerelay_request_duration_seconds",
		Help:    "End-to-end relay request duration.",
		Buckets: prometheus.DefBuckets,
	})
)

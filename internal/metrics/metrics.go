// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package metrics exposes Prometheus instrumentation for the TuneFrame core:
// recommendation latency, interaction throughput, cache efficiency, and
// payload fetch outcomes. Collectors are registered with promauto on the
// default registry and served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation engine metrics

	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation requests by operation",
		},
		[]string{"operation"}, // "recommend", "foryou", "similar", "mood"
	)

	RecommendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_latency_seconds",
			Help:    "Recommendation scoring latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"operation"},
	)

	InteractionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_recorded_total",
			Help: "Total behavioral interactions recorded by action kind",
		},
		[]string{"action"},
	)

	ProfilePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_persist_failures_total",
			Help: "Total best-effort profile writes that failed",
		},
	)

	// Media cache metrics

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cache_hits_total",
			Help: "Total cached payload reads served",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cache_misses_total",
			Help: "Total payload reads for uncached tracks",
		},
	)

	CacheAdmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cache_admissions_total",
			Help: "Total payloads admitted into the cache",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_cache_evictions_total",
			Help: "Total entries evicted to satisfy cache budgets",
		},
	)

	CacheRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_cache_rejections_total",
			Help: "Total admission rejections by reason",
		},
		[]string{"reason"}, // "oversized", "fetch_failed"
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cache_size_bytes",
			Help: "Current total size of cached payloads",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_cache_entries",
			Help: "Current number of cached payloads",
		},
	)

	// Payload fetcher metrics

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payload_fetches_total",
			Help: "Total payload fetch attempts by outcome",
		},
		[]string{"outcome"}, // "success", "error", "rejected"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payload_fetch_duration_seconds",
			Help:    "Payload fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HTTP API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveRecommend records one recommendation call.
func ObserveRecommend(operation string, start time.Time) {
	RecommendRequestsTotal.WithLabelValues(operation).Inc()
	RecommendLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveAPIRequest records one HTTP request.
func ObserveAPIRequest(method, endpoint string, status int, start time.Time) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
}

// SetCacheUsage updates the cache usage gauges after a store mutation.
func SetCacheUsage(entries int, totalBytes int64) {
	CacheEntries.Set(float64(entries))
	CacheSizeBytes.Set(float64(totalBytes))
}

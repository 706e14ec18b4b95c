// Package metrics holds the prometheus collectors of the seal verifier.
//
// Collectors are registered with Registry, which a node embeds into its own
// registry or serves directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powseal"

// Verification results.
const (
	ResultValid            = "valid"
	ResultInvalid          = "invalid"
	ResultEnvironmentError = "environment_error"
	ResultCacheError       = "cache_error"
)

// Cache sources.
const (
	SourceDisk      = "disk"
	SourceGenerated = "generated"
)

var Registry = prometheus.NewRegistry()

var (
	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Seal verifications by algorithm and result.",
		},
		[]string{"algorithm", "result"},
	)

	DifficultyQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "difficulty_queries_total",
			Help:      "Difficulty lookups by algorithm and result.",
		},
		[]string{"algorithm", "result"},
	)

	CacheBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_builds_total",
			Help:      "Epoch caches made available, by source.",
		},
		[]string{"source"},
	)

	CacheBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_build_duration_seconds",
			Help:      "Time to load or generate an epoch cache.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	CachedEpochs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_epochs",
			Help:      "Epoch caches currently held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		Verifications,
		DifficultyQueries,
		CacheBuilds,
		CacheBuildDuration,
		CachedEpochs,
	)
}

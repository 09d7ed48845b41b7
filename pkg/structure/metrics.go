// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package structure

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsStructure holds Prometheus metrics for structure resolution.
type metricsStructure struct {
	once sync.Once

	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	resolutions   prometheus.Counter
	subtreeErrors prometheus.Counter
	truncations   prometheus.Counter

	resolveDuration prometheus.Histogram
}

var structMetrics metricsStructure

func (m *metricsStructure) init() {
	m.once.Do(func() {
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_structure_cache_hits_total", Help: "Structure cache hits"})
		m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_structure_cache_misses_total", Help: "Structure cache misses"})
		m.resolutions = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_structure_resolutions_total", Help: "Full structure resolutions performed"})
		m.subtreeErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_structure_subtree_errors_total", Help: "Subtree listings dropped after a fetch error"})
		m.truncations = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_structure_truncations_total", Help: "Subtrees cut off at the depth limit"})

		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.resolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repolens_structure_resolve_seconds", Help: "Duration of full structure resolutions", Buckets: buckets})

		prometheus.MustRegister(
			m.cacheHits, m.cacheMisses, m.resolutions,
			m.subtreeErrors, m.truncations,
			m.resolveDuration,
		)
	})
}

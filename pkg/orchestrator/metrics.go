// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsOrchestrator holds Prometheus metrics for parse orchestration.
type metricsOrchestrator struct {
	once sync.Once

	jobsEnqueued  prometheus.Counter
	resubmissions prometheus.Counter
	demoClones    prometheus.Counter
	reuses        prometheus.Counter
}

var orchMetrics metricsOrchestrator

func (m *metricsOrchestrator) init() {
	m.once.Do(func() {
		m.jobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_orchestrator_jobs_enqueued_total", Help: "Parse jobs handed to the background dispatcher"})
		m.resubmissions = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_orchestrator_resubmissions_total", Help: "Parse jobs re-dispatched for stale or unfinished projects"})
		m.demoClones = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_orchestrator_demo_clones_total", Help: "Projects created by duplicating a demo template graph"})
		m.reuses = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_orchestrator_reuses_total", Help: "Submissions answered from an up-to-date ready project"})

		prometheus.MustRegister(
			m.jobsEnqueued, m.resubmissions, m.demoClones, m.reuses,
		)
	})
}

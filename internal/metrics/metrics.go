// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics holds the Prometheus instrumentation shared by the
// Tool Registry and the Pipeline Driver. Metrics live on a private
// registry rather than the global default so embedding forge as a
// library never collides with a host process's own metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// Registry is the Prometheus registry forge publishes to. A host
	// process wiring up its own /metrics endpoint gathers this alongside
	// its own registry.
	Registry = prometheus.NewRegistry()

	// ProbeDuration observes how long each Tool Registry probe took.
	ProbeDuration *prometheus.HistogramVec

	// ProbeResults counts probes by tool kind, name, and outcome
	// (available/unavailable/timeout).
	ProbeResults *prometheus.CounterVec

	// StageDuration observes how long each Stage Scheduler invocation
	// took, labeled by stage and selected tool.
	StageDuration *prometheus.HistogramVec

	// JobsTotal counts completed Pipeline jobs by terminal result
	// (success/failed/cancelled).
	JobsTotal *prometheus.CounterVec
)

func init() {
	once.Do(func() {
		buckets := []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

		ProbeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_probe_duration_seconds",
			Help:    "Duration of Tool Registry probe invocations.",
			Buckets: buckets,
		}, []string{"kind", "name"})

		ProbeResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_probe_results_total",
			Help: "Tool Registry probe outcomes by kind, name, and result.",
		}, []string{"kind", "name", "result"})

		StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_stage_duration_seconds",
			Help:    "Duration of a Stage Scheduler invocation.",
			Buckets: buckets,
		}, []string{"stage", "tool"})

		JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_jobs_total",
			Help: "Completed Pipeline jobs by terminal result.",
		}, []string{"result"})

		Registry.MustRegister(ProbeDuration, ProbeResults, StageDuration, JobsTotal)
	})
}

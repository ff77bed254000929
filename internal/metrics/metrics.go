// Package metrics exposes Prometheus metrics for optimization runs and capacity views.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the planner
var Registry = prometheus.NewRegistry()

// factory registers metrics to Registry directly
var factory = promauto.With(Registry)

// OptimizationRunsTotal counts runs by outcome: success or the failure kind.
var OptimizationRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "capacity",
	Name:      "optimization_runs_total",
	Help:      "Optimization runs by outcome",
}, []string{"outcome"})

// OptimizationDurationSeconds tracks the full run time including load and commit.
var OptimizationDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "capacity",
	Name:      "optimization_duration_seconds",
	Help:      "Time taken to load, optimize and commit a planning period",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
})

// AssignmentsCalculated tracks how many calculations the last run of a period wrote.
var AssignmentsCalculated = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "assignments_calculated",
	Help:      "Calculated assignments written by the last run of a planning period",
}, []string{"period_id"})

// InfeasibleProjects tracks under-staffed projects after the last run of a period.
var InfeasibleProjects = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "infeasible_projects",
	Help:      "Projects left under-staffed by the last run of a planning period",
}, []string{"period_id"})

// ShortfallHours tracks total unmet required hours by priority after the last run.
var ShortfallHours = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "shortfall_hours",
	Help:      "Unmet required hours after the last run of a planning period, by priority",
}, []string{"period_id", "priority"})

// OptimizationWarningsTotal counts warnings raised by runs.
var OptimizationWarningsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "capacity",
	Name:      "optimization_warnings_total",
	Help:      "Warnings raised by optimization runs",
})

// OverCommittedPeople tracks people above 100% utilization in the last computed overview.
var OverCommittedPeople = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "over_committed_people",
	Help:      "People above full utilization in the last computed overview of a period",
}, []string{"period_id"})

// ArchiveUploadsTotal counts run snapshot uploads by result.
var ArchiveUploadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "capacity",
	Name:      "archive_uploads_total",
	Help:      "Run snapshot uploads to object storage by result",
}, []string{"result"})

// JobRunsTotal counts scheduled job executions by job and result.
var JobRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "capacity",
	Name:      "job_runs_total",
	Help:      "Scheduled job executions by job and result",
}, []string{"job", "result"})

// DatabaseSizeBytes tracks the planner database file sizes seen by maintenance.
var DatabaseSizeBytes = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "database_size_bytes",
	Help:      "Size of the planner database files",
}, []string{"file"})

// DiskFreeBytes tracks free space on the data volume.
var DiskFreeBytes = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "capacity",
	Name:      "disk_free_bytes",
	Help:      "Free bytes on the volume holding the data directory",
})

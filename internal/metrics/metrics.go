// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the housing pipeline.
//
//   - Backend is a narrow interface for counters and timings.
//   - A global, pluggable backend defaults to a no-op implementation, so
//     recording is always safe even when nothing is configured.
//   - Concrete systems (Prometheus Pushgateway, DogStatsD) live in
//     subpackages so the pipeline depends only on this package.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "housing_etl_step_total"
	StepDuration = "housing_etl_step_duration_seconds"
	RowsTotal    = "housing_etl_rows_total"
	RepairsTotal = "housing_etl_repairs_total"
)

// Row kinds reported through RecordRow.
const (
	RowRead              = "read"
	RowDroppedCorruptKey = "dropped_corrupt_key"
	RowRandomFilled      = "random_filled"
	RowZipReconciled     = "zip_reconciled"
	RowZipPropagated     = "zip_propagated"
	RowMerged            = "merged"
	RowInserted          = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// It is meant to be called once during startup.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline step and records its
// duration, labelled with the outcome.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind (one of
// the Row* constants). Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordRepair counts repaired cells per dataset and repair reason.
func RecordRepair(job, dataset, reason string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RepairsTotal, float64(delta), Labels{
		"job":     job,
		"dataset": dataset,
		"reason":  reason,
	})
}

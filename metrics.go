package outbox

import "time"

// Metrics captures per-listener engine telemetry.
type Metrics interface {
	// ObserveDrainDuration records the time a drain cycle took.
	ObserveDrainDuration(listener string, duration time.Duration)
	// AddProcessed increments the count of events handled.
	AddProcessed(listener string, count int)
	// AddSkipped increments the count of events skipped (unmatched type or
	// malformed payload).
	AddSkipped(listener string, count int)
	// AddRetries increments the count of drain retries after failures.
	AddRetries(listener string, count int)
	// AddFailures increments the count of drains that exhausted their retries.
	AddFailures(listener string, count int)
	// SetCursor records the listener's last persisted cursor.
	SetCursor(listener string, cursor int64)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveDrainDuration implements Metrics.
func (NopMetrics) ObserveDrainDuration(string, time.Duration) {}

// AddProcessed implements Metrics.
func (NopMetrics) AddProcessed(string, int) {}

// AddSkipped implements Metrics.
func (NopMetrics) AddSkipped(string, int) {}

// AddRetries implements Metrics.
func (NopMetrics) AddRetries(string, int) {}

// AddFailures implements Metrics.
func (NopMetrics) AddFailures(string, int) {}

// SetCursor implements Metrics.
func (NopMetrics) SetCursor(string, int64) {}

// Package otelmetrics adapts the outbox Metrics interface to OpenTelemetry
// instruments. Every measurement carries the listener name as an attribute.
package otelmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	outbox "github.com/kristofferremback/threa-outbox"
)

const meterName = "threa.outbox"

// Metrics records outbox engine telemetry on OpenTelemetry instruments.
type Metrics struct {
	drainDuration  metric.Float64Histogram
	eventsHandled  metric.Int64Counter
	eventsSkipped  metric.Int64Counter
	drainRetries   metric.Int64Counter
	drainsFailed   metric.Int64Counter
	listenerCursor metric.Int64Gauge
}

var _ outbox.Metrics = (*Metrics)(nil)

// New creates the instruments on the given provider. A nil provider uses the
// global one.
func New(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(meterName)

	var (
		m   Metrics
		err error
	)

	m.drainDuration, err = meter.Float64Histogram(
		"outbox.drain.duration",
		metric.WithDescription("Time taken per listener drain cycle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.drain.duration histogram: %w", err)
	}

	m.eventsHandled, err = meter.Int64Counter(
		"outbox.events.processed",
		metric.WithDescription("Number of outbox events processed by side effects"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.events.processed counter: %w", err)
	}

	m.eventsSkipped, err = meter.Int64Counter(
		"outbox.events.skipped",
		metric.WithDescription("Number of outbox events skipped (unmatched type or rejected payload)"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.events.skipped counter: %w", err)
	}

	m.drainRetries, err = meter.Int64Counter(
		"outbox.drain.retries",
		metric.WithDescription("Number of drain retries after failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.drain.retries counter: %w", err)
	}

	m.drainsFailed, err = meter.Int64Counter(
		"outbox.drain.failed",
		metric.WithDescription("Number of drains that exhausted their retries"),
		metric.WithUnit("{drain}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.drain.failed counter: %w", err)
	}

	m.listenerCursor, err = meter.Int64Gauge(
		"outbox.listener.cursor",
		metric.WithDescription("Last persisted cursor per listener"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox.listener.cursor gauge: %w", err)
	}

	return &m, nil
}

// ObserveDrainDuration implements outbox.Metrics.
func (m *Metrics) ObserveDrainDuration(listener string, duration time.Duration) {
	m.drainDuration.Record(context.Background(), duration.Seconds(), listenerAttr(listener))
}

// AddProcessed implements outbox.Metrics.
func (m *Metrics) AddProcessed(listener string, count int) {
	m.eventsHandled.Add(context.Background(), int64(count), listenerAttr(listener))
}

// AddSkipped implements outbox.Metrics.
func (m *Metrics) AddSkipped(listener string, count int) {
	m.eventsSkipped.Add(context.Background(), int64(count), listenerAttr(listener))
}

// AddRetries implements outbox.Metrics.
func (m *Metrics) AddRetries(listener string, count int) {
	m.drainRetries.Add(context.Background(), int64(count), listenerAttr(listener))
}

// AddFailures implements outbox.Metrics.
func (m *Metrics) AddFailures(listener string, count int) {
	m.drainsFailed.Add(context.Background(), int64(count), listenerAttr(listener))
}

// SetCursor implements outbox.Metrics.
func (m *Metrics) SetCursor(listener string, cursor int64) {
	m.listenerCursor.Record(context.Background(), cursor, listenerAttr(listener))
}

func listenerAttr(listener string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("listener", listener))
}

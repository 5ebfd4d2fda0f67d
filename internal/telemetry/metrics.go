package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prevairwatch/prevairwatch/internal/telemetry"

// ProviderMetrics holds metrics for upstream provider calls.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// NewProviderMetrics creates metrics for monitoring upstream provider calls.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// RecordRequest records metrics for a provider request. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordRequest(ctx context.Context, provider, endpoint string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.endpoint", endpoint),
		attribute.Bool("error", err != nil),
	}

	// Detached from request cancellation so failed calls are still counted.
	ctx = context.WithoutCancel(ctx)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// PollMetrics holds metrics for polling cycles.
type PollMetrics struct {
	cycleDuration metric.Float64Histogram
	cycleTotal    metric.Int64Counter
	fetchFailures metric.Int64Counter
	level         metric.Int64Gauge
}

// NewPollMetrics creates metrics for monitoring polling cycles.
func NewPollMetrics() (*PollMetrics, error) {
	meter := otel.Meter(meterName)

	cycleDuration, err := meter.Float64Histogram(
		"prevair.poll.duration",
		metric.WithDescription("Duration of polling cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cycleTotal, err := meter.Int64Counter(
		"prevair.poll.total",
		metric.WithDescription("Total number of polling cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	fetchFailures, err := meter.Int64Counter(
		"prevair.fetch.failures",
		metric.WithDescription("Pollutant fetches that returned no data"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	level, err := meter.Int64Gauge(
		"prevair.pollutant.level",
		metric.WithDescription("Last level reported per pollutant"),
	)
	if err != nil {
		return nil, err
	}

	return &PollMetrics{
		cycleDuration: cycleDuration,
		cycleTotal:    cycleTotal,
		fetchFailures: fetchFailures,
		level:         level,
	}, nil
}

// RecordCycle records a completed polling cycle. A nil receiver is a no-op.
func (m *PollMetrics) RecordCycle(ctx context.Context, station string, duration time.Duration, failures int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("station.code", station))
	m.cycleDuration.Record(ctx, duration.Seconds(), attrs)
	m.cycleTotal.Add(ctx, 1, attrs)
	if failures > 0 {
		m.fetchFailures.Add(ctx, int64(failures), attrs)
	}
}

// RecordLevel records the last level of a pollutant. A nil receiver is a no-op.
func (m *PollMetrics) RecordLevel(ctx context.Context, pollutant string, level int) {
	if m == nil {
		return
	}
	m.level.Record(ctx, int64(level), metric.WithAttributes(attribute.String("pollutant", pollutant)))
}

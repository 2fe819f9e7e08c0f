package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "RegulatoryScanner/usecase"

// runMetrics holds the run counters. A failed instrument registration
// leaves the counter nil and the observation is skipped.
type runMetrics struct {
	records   metric.Int64Counter
	fallbacks metric.Int64Counter
	dropped   metric.Int64Counter
	invalid   metric.Int64Counter
	duration  metric.Float64Histogram
}

func newRunMetrics(meter metric.Meter) runMetrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	var m runMetrics
	m.records, _ = meter.Int64Counter("regscanner.records.total",
		metric.WithDescription("Records produced per source"),
		metric.WithUnit("{record}"),
	)
	m.fallbacks, _ = meter.Int64Counter("regscanner.fallback.total",
		metric.WithDescription("Sources that degraded to fallback records"),
		metric.WithUnit("{source}"),
	)
	m.dropped, _ = meter.Int64Counter("regscanner.rows.dropped",
		metric.WithDescription("Rows dropped for missing essential fields or ragged columns"),
		metric.WithUnit("{row}"),
	)
	m.invalid, _ = meter.Int64Counter("regscanner.records.invalid",
		metric.WithDescription("Normalized records rejected by schema validation"),
		metric.WithUnit("{record}"),
	)
	m.duration, _ = meter.Float64Histogram("regscanner.source.duration",
		metric.WithDescription("Time spent per source"),
		metric.WithUnit("s"),
	)
	return m
}

func (m runMetrics) add(ctx context.Context, c metric.Int64Counter, n int, source string) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (m runMetrics) observe(ctx context.Context, seconds float64, source, state string) {
	if m.duration == nil {
		return
	}
	m.duration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("state", state),
	))
}

func tracerOrDefault(t trace.Tracer) trace.Tracer {
	if t == nil {
		return otel.Tracer(instrumentationName)
	}
	return t
}

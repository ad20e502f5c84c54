package reranker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/grounder/internal/reranker"

// Metrics holds cross-encoder scoring instruments.
type Metrics struct {
	duration   metric.Float64Histogram
	candidates metric.Int64Histogram
	errors     metric.Int64Counter
}

// NewMetrics creates reranker metrics on the global meter provider.
// Instrument creation failures are ignored; recording on a nil instrument
// is a no-op.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	m.duration, _ = meter.Float64Histogram(
		"grounder.rerank.duration_seconds",
		metric.WithDescription("Duration of cross-encoder scoring, labeled by model"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	m.candidates, _ = meter.Int64Histogram(
		"grounder.rerank.candidates",
		metric.WithDescription("Number of candidate documents per rerank call"),
		metric.WithUnit("{document}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50),
	)
	m.errors, _ = meter.Int64Counter(
		"grounder.rerank.errors_total",
		metric.WithDescription("Total cross-encoder scoring errors by model"),
		metric.WithUnit("{error}"),
	)
	return m
}

// RecordRerank records one scoring call.
func (m *Metrics) RecordRerank(ctx context.Context, model string, duration time.Duration, candidates int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if candidates > 0 && m.candidates != nil {
		m.candidates.Record(ctx, int64(candidates), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

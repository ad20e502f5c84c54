package retriever

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/grounder/internal/retriever"

// Metrics holds retrieval instruments.
type Metrics struct {
	duration metric.Float64Histogram
	chunks   metric.Int64Histogram
	total    metric.Int64Counter
}

// NewMetrics creates retrieval metrics on the global meter provider.
// Instrument creation failures are ignored; recording on a nil instrument
// is a no-op.
func NewMetrics() *Metrics {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	m.duration, _ = meter.Float64Histogram(
		"grounder.retrieval.duration_seconds",
		metric.WithDescription("End-to-end retrieval duration, labeled by outcome"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	m.chunks, _ = meter.Int64Histogram(
		"grounder.retrieval.chunks_returned",
		metric.WithDescription("Chunks returned per retrieval after filtering and budgeting"),
		metric.WithUnit("{chunk}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 13, 21),
	)
	m.total, _ = meter.Int64Counter(
		"grounder.retrieval.total",
		metric.WithDescription("Total retrievals by outcome; empty results split into below_threshold, empty_index, over_budget and timeout"),
		metric.WithUnit("{retrieval}"),
	)
	return m
}

// RecordRetrieval records one retrieval. result may be nil on error.
func (m *Metrics) RecordRetrieval(ctx context.Context, outcome string, duration time.Duration, result *Result) {
	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if result != nil && m.chunks != nil {
		m.chunks.Record(ctx, int64(len(result.Chunks)), metric.WithAttributes(attrs...))
	}
	if m.total != nil {
		m.total.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

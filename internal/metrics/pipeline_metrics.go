// Package metrics records pipeline execution metrics via OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("pipeline-metrics")

// PipelineMetrics provides metrics collection for generation runs
type PipelineMetrics struct {
	runsStartedCounter   metric.Int64Counter
	runsCompletedCounter metric.Int64Counter
	runsFailedCounter    metric.Int64Counter
	runDurationHistogram metric.Float64Histogram
	runsActiveGauge      metric.Int64UpDownCounter
}

// NewPipelineMetrics creates a new pipeline metrics collector
func NewPipelineMetrics() (*PipelineMetrics, error) {
	runsStartedCounter, err := meter.Int64Counter(
		"cloud_architect.runs.started",
		metric.WithDescription("Total number of generation runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsCompletedCounter, err := meter.Int64Counter(
		"cloud_architect.runs.completed",
		metric.WithDescription("Total number of generation runs completed successfully"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsFailedCounter, err := meter.Int64Counter(
		"cloud_architect.runs.failed",
		metric.WithDescription("Total number of generation runs that failed"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"cloud_architect.run.duration",
		metric.WithDescription("Duration of generation runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runsActiveGauge, err := meter.Int64UpDownCounter(
		"cloud_architect.runs.active",
		metric.WithDescription("Number of currently active generation runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		runsStartedCounter:   runsStartedCounter,
		runsCompletedCounter: runsCompletedCounter,
		runsFailedCounter:    runsFailedCounter,
		runDurationHistogram: runDurationHistogram,
		runsActiveGauge:      runsActiveGauge,
	}, nil
}

// RecordRunStarted records the start of a generation run
func (pm *PipelineMetrics) RecordRunStarted(ctx context.Context, operation string) {
	pm.runsStartedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
		),
	)
	pm.runsActiveGauge.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
		),
	)
}

// RecordRunCompleted records a successful generation run
func (pm *PipelineMetrics) RecordRunCompleted(ctx context.Context, operation string, duration time.Duration) {
	pm.runsCompletedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", "completed"),
		),
	)
	pm.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", "completed"),
		),
	)
	pm.runsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("operation", operation),
		),
	)
}

// RecordRunFailed records a failed generation run
func (pm *PipelineMetrics) RecordRunFailed(ctx context.Context, operation, errorType string, duration time.Duration) {
	pm.runsFailedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", "failed"),
			attribute.String("error.type", errorType),
		),
	)
	pm.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", "failed"),
		),
	)
	pm.runsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("operation", operation),
		),
	)
}

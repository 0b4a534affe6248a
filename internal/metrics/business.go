package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("socialchef/recipebot")

	// Pipeline metrics
	PipelineRunsTotal  metric.Int64Counter
	PipelineDuration   metric.Float64Histogram
	StageOutcomesTotal metric.Int64Counter

	// Download metrics
	DownloadDuration metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIGenerationDuration metric.Float64Histogram

	// Delivery metrics
	CaptionTruncatedTotal metric.Int64Counter
	DeliveryFallbackTotal metric.Int64Counter
)

// Instruments taken from the global meter delegate to the real provider once
// telemetry installs it, so creating them at load time is safe.
func init() {
	_ = Init()
}

func Init() error {
	var err error

	PipelineRunsTotal, err = meter.Int64Counter(
		"pipeline.runs.total",
		metric.WithDescription("Total number of recipe pipeline runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	PipelineDuration, err = meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Duration of a full recipe pipeline run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	StageOutcomesTotal, err = meter.Int64Counter(
		"pipeline.stage.outcomes.total",
		metric.WithDescription("Pipeline stage results by stage and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	DownloadDuration, err = meter.Float64Histogram(
		"media.download.duration",
		metric.WithDescription("Duration of yt-dlp downloads"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of language model refinement calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	CaptionTruncatedTotal, err = meter.Int64Counter(
		"delivery.caption.truncated.total",
		metric.WithDescription("Captions cut to fit the transport limit"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	DeliveryFallbackTotal, err = meter.Int64Counter(
		"delivery.fallback.total",
		metric.WithDescription("Deliveries retried with a plain caption"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordExternalCall records one call to an outside API.
func RecordExternalCall(ctx context.Context, provider, operation, status string, seconds float64) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	}
	ExternalAPIDuration.Record(ctx, seconds, metric.WithAttributes(attrs...))
	ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
}

// RecordStage records the outcome of one pipeline stage.
func RecordStage(ctx context.Context, stage, outcome string) {
	StageOutcomesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

package recipe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/services/ai"
	"github.com/socialchef/recipebot/internal/services/llm"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Operation names one refinement call.
type Operation string

const (
	OpRefine     Operation = "refine"
	OpMetric     Operation = "convert_metric"
	OpAudioNotes Operation = "audio_notes"
	OpMerge      Operation = "merge"
)

// Result is what every refinement returns. A failed call carries Err and no
// text; callers fall back to their previous text.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the call produced usable text.
func (r Result) OK() bool {
	return r.Err == nil && strings.TrimSpace(r.Text) != ""
}

// Refiner runs the four recipe transformations against one language model.
// It holds no per-request state.
type Refiner struct {
	model llm.Model
}

func NewRefiner(model llm.Model) *Refiner {
	return &Refiner{model: model}
}

// RefineToRecipe restructures a video description into title, ingredients and steps.
// sourceURL only selects platform hints for the prompt.
func (r *Refiner) RefineToRecipe(ctx context.Context, description, sourceURL string) Result {
	prompt := ai.BuildRefinePrompt(description, ai.PlatformFromURL(sourceURL))
	return r.call(ctx, OpRefine, func(ctx context.Context) (string, error) {
		return r.model.Generate(ctx, prompt)
	})
}

// ConvertToMetric rewrites volume and weight measurements to grams.
func (r *Refiner) ConvertToMetric(ctx context.Context, recipeText string) Result {
	prompt := ai.BuildMetricPrompt(recipeText)
	return r.call(ctx, OpMetric, func(ctx context.Context) (string, error) {
		return r.model.Generate(ctx, prompt)
	})
}

// TranscribeAudioNotes extracts recipe-relevant speech from an audio file.
func (r *Refiner) TranscribeAudioNotes(ctx context.Context, audioPath string) Result {
	prompt := ai.BuildAudioNotesPrompt()
	return r.call(ctx, OpAudioNotes, func(ctx context.Context) (string, error) {
		return r.model.GenerateWithAudio(ctx, prompt, audioPath)
	})
}

// MergeRecipeAndNotes folds audio notes into the metric recipe.
func (r *Refiner) MergeRecipeAndNotes(ctx context.Context, metricRecipe, audioNotes string) Result {
	prompt := ai.BuildMergePrompt(metricRecipe, audioNotes)
	return r.call(ctx, OpMerge, func(ctx context.Context) (string, error) {
		return r.model.Generate(ctx, prompt)
	})
}

func (r *Refiner) call(ctx context.Context, op Operation, fn func(ctx context.Context) (string, error)) Result {
	provider := r.model.Name()

	ctx, span := telemetry.Tracer("refiner").Start(ctx, "refiner."+string(op))
	defer span.End()
	span.SetAttributes(attribute.String("provider", provider))

	start := time.Now()
	text, err := fn(ctx)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	duration := time.Since(start).Seconds()

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "Refinement call failed",
			"operation", string(op),
			"provider", provider,
			"duration_s", duration,
			"error", err,
		)
	}

	metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", string(op)),
	))
	metrics.RecordExternalCall(ctx, provider, string(op), status, duration)

	if err != nil {
		return Result{Err: err}
	}
	return Result{Text: text}
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/logger"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/services/media"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Status replies sent while a run is in progress.
const (
	MsgFetching = "🔎 Fetching video info and downloading..."
	MsgRefining = "✨ Refining, converting, and analyzing audio..."
)

// Request is one link a user asked to turn into a recipe.
type Request struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	URL       string `json:"url"`
}

type Fetcher interface {
	FetchVideo(ctx context.Context, v *media.Video) media.Result
	FetchAudio(ctx context.Context, a *media.Audio) media.Result
}

type Refiner interface {
	RefineToRecipe(ctx context.Context, description, sourceURL string) recipe.Result
	ConvertToMetric(ctx context.Context, recipeText string) recipe.Result
	TranscribeAudioNotes(ctx context.Context, audioPath string) recipe.Result
	MergeRecipeAndNotes(ctx context.Context, metricRecipe, audioNotes string) recipe.Result
}

type Notifier interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
}

type Assembler interface {
	Deliver(ctx context.Context, chatID int64, replyTo int, video *media.Video, text string) error
}

type Janitor interface {
	Cleanup(ctx context.Context, paths ...string) error
}

type Options struct {
	// RefineFallback continues with the raw description when refinement fails.
	RefineFallback bool
	StatusReplies  bool
	// RunTimeout bounds a whole run. Zero means no deadline.
	RunTimeout time.Duration
}

// Pipeline turns a video link into a recipe delivered to the chat.
// A Pipeline is shared by all runs and keeps no per-run state.
type Pipeline struct {
	assets    *media.Assets
	fetcher   Fetcher
	refiner   Refiner
	notifier  Notifier
	assembler Assembler
	janitor   Janitor
	opts      Options
}

func New(assets *media.Assets, fetcher Fetcher, refiner Refiner, notifier Notifier, assembler Assembler, janitor Janitor, opts Options) *Pipeline {
	return &Pipeline{
		assets:    assets,
		fetcher:   fetcher,
		refiner:   refiner,
		notifier:  notifier,
		assembler: assembler,
		janitor:   janitor,
		opts:      opts,
	}
}

// run carries the state of a single request.
type run struct {
	p      *Pipeline
	req    Request
	log    *slog.Logger
	span   trace.Span
	stages []StageResult
}

// Run processes one request to completion. Media files are removed before it
// returns, whatever the outcome. Failures are reported to the chat and in the
// returned Report, never as a panic.
func (p *Pipeline) Run(ctx context.Context, req Request) (report Report) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := telemetry.Tracer("pipeline").Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int64("chat.id", req.ChatID),
		attribute.String("source.url", req.URL),
	))
	defer span.End()

	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	r := &run{
		p:    p,
		req:  req,
		log:  logger.ForChat(ctx, req.ChatID).With("run_id", runID, "url", req.URL),
		span: span,
	}

	owner := strconv.FormatInt(req.ChatID, 10)
	video := p.assets.NewVideo(req.URL, owner)
	audio := p.assets.NewAudio(req.URL, owner)

	defer func() {
		// cleanup must outlive an expired run deadline
		if err := p.janitor.Cleanup(context.WithoutCancel(ctx), video.Path, audio.Path); err != nil {
			r.log.Warn("Asset cleanup incomplete", "error", err)
		}
	}()

	defer func() {
		if rec := recover(); rec != nil {
			err := apperrors.NewInternalError("pipeline panic", fmt.Errorf("%v", rec))
			sentry.CapturePanic(ctx, rec, map[string]string{
				"component": "pipeline",
				"chat_id":   owner,
			})
			r.log.Error("Pipeline panicked", "panic", rec)
			r.reply(ctx, apperrors.UserMessageFor(fmt.Errorf("%v", rec)))
			report = r.report(StatusUnexpected, "", err)
		}
		r.finish(ctx, report, start)
	}()

	return r.execute(ctx, video, audio)
}

func (r *run) execute(ctx context.Context, video *media.Video, audio *media.Audio) Report {
	p := r.p

	r.status(ctx, MsgFetching)

	if res := p.fetcher.FetchVideo(ctx, video); !res.OK() {
		return r.fail(ctx, StageFetching, apperrors.NewDownloadError("video download failed", "DOWNLOAD_FAILED", res.Err))
	}
	r.ok(ctx, StageFetching)

	if !video.HasDescription() {
		return r.fail(ctx, StageDescribing, apperrors.NewNoDescriptionError(r.req.URL))
	}
	r.ok(ctx, StageDescribing)
	text := *video.Description

	r.status(ctx, MsgRefining)

	refined := p.refiner.RefineToRecipe(ctx, text, r.req.URL)
	switch {
	case refined.OK():
		text = refined.Text
		r.ok(ctx, StageRefining)
	case p.opts.RefineFallback:
		r.soft(ctx, StageRefining, refined.Err)
	default:
		return r.fail(ctx, StageRefining, apperrors.NewRefineError(refined.Err))
	}

	if converted := p.refiner.ConvertToMetric(ctx, text); converted.OK() {
		text = converted.Text
		r.ok(ctx, StageConvertingUnits)
	} else {
		r.soft(ctx, StageConvertingUnits, converted.Err)
	}

	text = r.withAudioNotes(ctx, audio, text)

	if err := p.assembler.Deliver(ctx, r.req.ChatID, r.req.MessageID, video, text); err != nil {
		r.record(ctx, StageAssembling, OutcomeHardFailure, err)
		r.log.Error("Delivery failed", "error", err)
		sentry.CaptureException(ctx, err, map[string]string{"component": "delivery"})
		r.reply(ctx, apperrors.UserMessageFor(err))
		return r.report(StatusUnexpected, text, err)
	}
	r.ok(ctx, StageAssembling)

	return r.report(StatusDone, text, nil)
}

// withAudioNotes merges spoken instructions into text. Every failure on the
// way keeps text as it is.
func (r *run) withAudioNotes(ctx context.Context, audio *media.Audio, text string) string {
	p := r.p

	if res := p.fetcher.FetchAudio(ctx, audio); !res.OK() {
		r.soft(ctx, StageFetchingAudio, res.Err)
		r.skip(ctx, StageAnalyzingAudio)
		r.skip(ctx, StageMerging)
		return text
	}
	r.ok(ctx, StageFetchingAudio)

	notes := p.refiner.TranscribeAudioNotes(ctx, audio.Path)
	if !notes.OK() {
		r.soft(ctx, StageAnalyzingAudio, notes.Err)
		r.skip(ctx, StageMerging)
		return text
	}
	r.ok(ctx, StageAnalyzingAudio)

	merged := p.refiner.MergeRecipeAndNotes(ctx, text, notes.Text)
	if !merged.OK() {
		r.soft(ctx, StageMerging, merged.Err)
		return text
	}
	r.ok(ctx, StageMerging)
	return merged.Text
}

func (r *run) status(ctx context.Context, text string) {
	if r.p.opts.StatusReplies {
		r.reply(ctx, text)
	}
}

func (r *run) reply(ctx context.Context, text string) {
	if err := r.p.notifier.Reply(context.WithoutCancel(ctx), r.req.ChatID, r.req.MessageID, text); err != nil {
		r.log.Warn("Failed to send reply", "error", err)
	}
}

func (r *run) ok(ctx context.Context, stage Stage) {
	r.record(ctx, stage, OutcomeOK, nil)
}

func (r *run) soft(ctx context.Context, stage Stage, err error) {
	r.record(ctx, stage, OutcomeSoftFailure, err)
	r.log.Warn("Stage failed, keeping previous text", "stage", string(stage), "error", err)
}

func (r *run) skip(ctx context.Context, stage Stage) {
	r.record(ctx, stage, OutcomeSkipped, nil)
}

func (r *run) fail(ctx context.Context, stage Stage, err *apperrors.AppError) Report {
	r.record(ctx, stage, OutcomeHardFailure, err)
	r.log.Info("Pipeline stopped", "stage", string(stage), "error_code", err.Code(), "error", err)
	r.reply(ctx, apperrors.UserMessageFor(err))
	return r.report(StatusFailed, "", err)
}

func (r *run) record(ctx context.Context, stage Stage, outcome Outcome, err error) {
	r.stages = append(r.stages, StageResult{Stage: stage, Outcome: outcome, Err: err})
	metrics.RecordStage(ctx, string(stage), string(outcome))
	r.span.AddEvent("stage", trace.WithAttributes(
		attribute.String("stage", string(stage)),
		attribute.String("outcome", string(outcome)),
	))
}

func (r *run) report(status Status, text string, err error) Report {
	return Report{Status: status, Text: text, Stages: r.stages, Err: err}
}

func (r *run) finish(ctx context.Context, report Report, start time.Time) {
	duration := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("status", string(report.Status)))
	metrics.PipelineRunsTotal.Add(ctx, 1, attrs)
	metrics.PipelineDuration.Record(ctx, duration, attrs)

	r.span.SetAttributes(attribute.String("run.status", string(report.Status)))
	if report.Err != nil {
		r.span.RecordError(report.Err)
		r.span.SetStatus(codes.Error, report.Err.Error())
	}

	r.log.Info("Pipeline finished",
		"status", string(report.Status),
		"duration_s", duration,
		"stages", len(report.Stages),
	)
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/socialchef/recipebot/internal/pipeline"
)

// Runner runs the recipe pipeline for one request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Report
}

// Sweeper removes stale media left in the work directory.
type Sweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

type RecipeProcessor struct {
	runner      Runner
	sweeper     Sweeper
	sweepMaxAge time.Duration
}

func NewRecipeProcessor(runner Runner, sweeper Sweeper, sweepMaxAge time.Duration) *RecipeProcessor {
	return &RecipeProcessor{
		runner:      runner,
		sweeper:     sweeper,
		sweepMaxAge: sweepMaxAge,
	}
}

// HandleProcessRecipe runs the pipeline for a queued request. Runs that told
// the user which step failed complete normally; delivery failures and panics
// are returned so the task is archived for inspection.
func (p *RecipeProcessor) HandleProcessRecipe(ctx context.Context, t *asynq.Task) error {
	var payload ProcessRecipePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.URL == "" || payload.ChatID == 0 {
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Processing recipe", "chat_id", payload.ChatID, "url", payload.URL)

	report := p.runner.Run(ctx, payload.Request())
	if report.Status == pipeline.StatusUnexpected {
		return fmt.Errorf("recipe run ended unexpectedly: %w: %w", report.Err, asynq.SkipRetry)
	}
	return nil
}

// HandleSweepAssets removes media files older than the configured age.
func (p *RecipeProcessor) HandleSweepAssets(ctx context.Context, t *asynq.Task) error {
	removed, err := p.sweeper.Sweep(ctx, p.sweepMaxAge)
	if err != nil {
		return fmt.Errorf("sweep failed after removing %d files: %w", removed, err)
	}
	slog.InfoContext(ctx, "Sweep complete", "removed", removed)
	return nil
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.ErrorContext(ctx, "Task failed", "task_type", task.Type(), "error", err)
			}),
		},
	), nil
}

// NewScheduler creates a scheduler that enqueues a sweep every interval.
func NewScheduler(redisURL string, sweepInterval time.Duration) (*asynq.Scheduler, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		LogLevel: asynq.WarnLevel,
	})
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", sweepInterval), NewSweepAssetsTask()); err != nil {
		return nil, fmt.Errorf("failed to register sweep: %w", err)
	}
	return scheduler, nil
}

// NewServeMux routes both task types to processor, wrapped in the telemetry,
// Sentry and metrics middlewares.
func NewServeMux(processor *RecipeProcessor, metrics *WorkerMetrics) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(OTelMiddleware, SentryMiddleware, metrics.Middleware)
	mux.HandleFunc(TypeProcessRecipe, processor.HandleProcessRecipe)
	mux.HandleFunc(TypeSweepAssets, processor.HandleSweepAssets)
	return mux
}

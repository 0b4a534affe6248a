package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/socialchef/recipebot/internal/pipeline"
	"golang.org/x/sync/semaphore"
)

var ErrDispatcherClosed = errors.New("dispatcher is shutting down")

// InlineDispatcher runs requests in this process, at most limit at a time.
// Dispatch returns as soon as the run is scheduled.
type InlineDispatcher struct {
	runner Runner
	sem    *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewInlineDispatcher(runner Runner, limit int) *InlineDispatcher {
	if limit < 1 {
		limit = 1
	}
	return &InlineDispatcher{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(limit)),
	}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, req pipeline.Request) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	// runs outlive the update that triggered them
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(runCtx, 1); err != nil {
			slog.ErrorContext(runCtx, "Failed to acquire run slot", "chat_id", req.ChatID, "error", err)
			return
		}
		defer d.sem.Release(1)
		d.runner.Run(runCtx, req)
	}()
	return nil
}

// Close stops accepting requests and waits for scheduled runs to finish or
// ctx to be done.
func (d *InlineDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight runs: %w", ctx.Err())
	}
}

// Enqueuer is the part of asynq.Client the queue dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands requests to the worker process through Redis.
type QueueDispatcher struct {
	client Enqueuer
}

func NewQueueDispatcher(client Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, req pipeline.Request) error {
	task, err := NewProcessRecipeTask(req)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	slog.InfoContext(ctx, "Recipe task enqueued", "task_id", info.ID, "chat_id", req.ChatID)
	return nil
}

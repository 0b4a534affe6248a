package worker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
)

// SentryMiddleware gives every task its own Sentry hub, reports returned
// errors and turns a panic into a task error.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		taskID, _ := asynq.GetTaskID(ctx)
		queueName, _ := asynq.GetQueueName(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag("task_type", t.Type())
		hub.Scope().SetTag("task_id", taskID)
		hub.Scope().SetTag("queue", queueName)
		if chatID, ok := taskChatID(t); ok {
			hub.Scope().SetTag("chat_id", strconv.FormatInt(chatID, 10))
		}

		ctx = sentry.SetHubOnContext(ctx, hub)

		defer func() {
			if rec := recover(); rec != nil {
				hub.Recover(rec)
				err = fmt.Errorf("task %s panicked: %v: %w", t.Type(), rec, asynq.SkipRetry)
			}
		}()

		err = h.ProcessTask(ctx, t)
		if err != nil {
			hub.CaptureException(err)
		}

		return err
	})
}

package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/socialchef/recipebot/internal/pipeline"
)

// Task type constants
const (
	TypeProcessRecipe = "process:recipe"
	TypeSweepAssets   = "sweep:assets"
)

// ProcessRecipePayload is the payload for recipe processing tasks
type ProcessRecipePayload struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	URL       string `json:"url"`
}

func (p ProcessRecipePayload) Request() pipeline.Request {
	return pipeline.Request{ChatID: p.ChatID, MessageID: p.MessageID, URL: p.URL}
}

// NewProcessRecipeTask creates a new process recipe task. A run has already
// replied to the user by the time it fails, so it is never retried.
func NewProcessRecipeTask(req pipeline.Request) (*asynq.Task, error) {
	data, err := json.Marshal(ProcessRecipePayload{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		URL:       req.URL,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessRecipe, data, asynq.MaxRetry(0)), nil
}

// NewSweepAssetsTask creates a new stale asset sweep task
func NewSweepAssetsTask() *asynq.Task {
	return asynq.NewTask(TypeSweepAssets, nil, asynq.MaxRetry(0))
}

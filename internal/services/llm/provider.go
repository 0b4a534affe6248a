package llm

import (
	"context"
	"errors"
)

// ProviderType represents the type of language model provider
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderGroq   ProviderType = "groq"
)

// ErrEmptyResponse is returned when a model answers without any text.
var ErrEmptyResponse = errors.New("model returned no text")

// Model is a language model that answers a prompt, optionally with an audio file attached.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithAudio(ctx context.Context, prompt, audioPath string) (string, error)
}

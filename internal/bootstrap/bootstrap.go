package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/delivery"
	apperrors "github.com/socialchef/recipebot/internal/errors"
	"github.com/socialchef/recipebot/internal/httpclient"
	"github.com/socialchef/recipebot/internal/janitor"
	"github.com/socialchef/recipebot/internal/logger"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/pipeline"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/services/llm"
	"github.com/socialchef/recipebot/internal/services/media"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/telemetry"
	"github.com/socialchef/recipebot/internal/transport/telegram"
)

// telegramTimeout covers a long poll and a video upload.
const telegramTimeout = 5 * time.Minute

// CheckTools fails when any of the external programs cannot be found.
func CheckTools(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return apperrors.NewStartupError(fmt.Sprintf("%s must be installed and in your PATH", name), "TOOL_MISSING", err)
		}
	}
	return nil
}

// Init sets up logging, telemetry, Sentry and business metrics for one binary.
// The returned function flushes and shuts all of them down.
func Init(ctx context.Context, cfg *config.Config, component string) func(context.Context) {
	serviceName := cfg.ServiceName
	if component != "" {
		serviceName += "-" + component
	}

	slog.SetDefault(logger.New(cfg.Env))

	var shutdowns []func(context.Context) error

	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, serviceName, cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.OTLPHeaders())
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			shutdowns = append(shutdowns, shutdown)
		}
	}

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, serviceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	return func(ctx context.Context) {
		sentry.Flush(2 * time.Second)
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil {
				slog.Warn("Telemetry shutdown failed", "error", err)
			}
		}
	}
}

// NewTelegram connects to the Bot API over the instrumented HTTP client.
func NewTelegram(cfg *config.Config) (*telegram.Client, error) {
	return telegram.New(cfg.TelegramBotToken, httpclient.NewProviderClient("Telegram", telegramTimeout))
}

// Components are the long-lived pieces a binary needs besides the chat client.
type Components struct {
	Pipeline *pipeline.Pipeline
	Janitor  *janitor.Janitor
}

// NewPipeline builds the recipe pipeline. Every collaborator is created once
// here and shared by all runs.
func NewPipeline(ctx context.Context, cfg *config.Config, transport delivery.Transport) (*Components, error) {
	if err := os.MkdirAll(cfg.Media.WorkDir, 0o755); err != nil {
		return nil, apperrors.NewStartupError("work directory is not usable", "WORK_DIR", err)
	}

	model, err := llm.NewModel(ctx, cfg.LLM, cfg.GoogleAPIKey, cfg.GroqKey)
	if err != nil {
		return nil, apperrors.NewStartupError("language model setup failed", "LLM_SETUP", err)
	}

	jan := janitor.New(cfg.Media.WorkDir)
	p := pipeline.New(
		media.NewAssets(cfg.Media.WorkDir, cfg.Media.VideoFormat, cfg.Media.AudioFormat, cfg.Media.AudioCodec),
		media.NewFetcher(cfg.Media),
		recipe.NewRefiner(model),
		transport,
		delivery.NewAssembler(transport, cfg.Pipeline.MissingVideo),
		jan,
		pipeline.Options{
			RefineFallback: cfg.Pipeline.RefineFallback,
			StatusReplies:  !cfg.Pipeline.DisableStatusReplies,
			RunTimeout:     cfg.Pipeline.RunTimeout,
		},
	)

	slog.Info("Pipeline ready",
		"provider", model.Name(),
		"model", cfg.LLM.Model,
		"work_dir", cfg.Media.WorkDir,
		"refine_fallback", cfg.Pipeline.RefineFallback,
		"missing_video", cfg.Pipeline.MissingVideo,
	)
	return &Components{Pipeline: p, Janitor: jan}, nil
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/recipebot/internal/bootstrap"
	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/worker"
)

func main() {
	defer sentry.Recover()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required to run the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := bootstrap.Init(ctx, cfg, "worker")
	defer shutdown(context.Background())

	if err := bootstrap.CheckTools(cfg.Media.YtDlpPath, cfg.Media.FFmpegPath); err != nil {
		log.Fatalf("Startup check failed: %v", err)
	}

	tg, err := bootstrap.NewTelegram(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	components, err := bootstrap.NewPipeline(ctx, cfg, tg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	processor := worker.NewRecipeProcessor(components.Pipeline, components.Janitor, cfg.Pipeline.SweepMaxAge)

	srv, err := worker.NewServer(cfg.RedisURL, cfg.Pipeline.Concurrency)
	if err != nil {
		log.Fatalf("Failed to create worker server: %v", err)
	}
	scheduler, err := worker.NewScheduler(cfg.RedisURL, cfg.Pipeline.SweepInterval)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	mux := worker.NewServeMux(processor, workerMetrics)

	slog.Info("Starting worker", "concurrency", cfg.Pipeline.Concurrency)
	if err := srv.Start(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		log.Fatalf("Scheduler failed: %v", err)
	}

	<-ctx.Done()
	slog.Info("Shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
}

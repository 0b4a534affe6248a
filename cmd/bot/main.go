package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/socialchef/recipebot/internal/api"
	"github.com/socialchef/recipebot/internal/bootstrap"
	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/janitor"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/transport/telegram"
	"github.com/socialchef/recipebot/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	defer sentry.Recover()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := bootstrap.Init(ctx, cfg, "bot")
	defer shutdown(context.Background())

	tg, err := bootstrap.NewTelegram(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	// Requests go to the worker through Redis when it is configured,
	// otherwise they run in this process.
	var dispatcher telegram.Dispatcher
	var inline *worker.InlineDispatcher
	var jan *janitor.Janitor
	if cfg.RedisURL != "" {
		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue client: %v", err)
		}
		defer asynqClient.Close()
		dispatcher = worker.NewQueueDispatcher(asynqClient)
		slog.Info("Dispatching to queue")
	} else {
		if err := bootstrap.CheckTools(cfg.Media.YtDlpPath, cfg.Media.FFmpegPath); err != nil {
			log.Fatalf("Startup check failed: %v", err)
		}
		components, err := bootstrap.NewPipeline(ctx, cfg, tg)
		if err != nil {
			log.Fatalf("Failed to build pipeline: %v", err)
		}
		jan = components.Janitor
		inline = worker.NewInlineDispatcher(components.Pipeline, cfg.Pipeline.Concurrency)
		dispatcher = inline
		slog.Info("Dispatching inline", "concurrency", cfg.Pipeline.Concurrency)
	}

	handler := telegram.NewHandler(tg, dispatcher)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WebhookURL != "" {
		hookURL := strings.TrimSuffix(cfg.WebhookURL, "/") + "/telegram/webhook/" + cfg.WebhookSecret
		if err := tg.SetWebhook(ctx, hookURL); err != nil {
			log.Fatalf("Failed to set webhook: %v", err)
		}

		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           api.NewRouter(cfg.ServiceName, cfg.WebhookSecret, handler),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Starting webhook server", "port", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	} else {
		if err := tg.DeleteWebhook(ctx); err != nil {
			slog.Warn("Failed to delete webhook", "error", err)
		}
		g.Go(func() error {
			return tg.Poll(gctx, handler.HandleUpdate)
		})
	}

	// In queue mode the worker schedules the sweep.
	if inline != nil {
		g.Go(func() error {
			runSweeps(gctx, jan, cfg.Pipeline.SweepInterval, cfg.Pipeline.SweepMaxAge)
			return nil
		})
	}

	slog.Info("Bot is running", "env", cfg.Env, "webhook", cfg.WebhookURL != "")

	if err := g.Wait(); err != nil {
		slog.Error("Bot stopped with error", "error", err)
	}

	if inline != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := inline.Close(closeCtx); err != nil {
			slog.Warn("In-flight runs did not finish", "error", err)
		}
	}
	slog.Info("Bot stopped")
}

func runSweeps(ctx context.Context, j *janitor.Janitor, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := j.Sweep(ctx, maxAge); err != nil {
			slog.Warn("Sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

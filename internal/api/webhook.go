package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"github.com/socialchef/recipebot/internal/middleware"
	"github.com/socialchef/recipebot/internal/sentry"
	"go.opentelemetry.io/otel"
)

// WebhookPath is the route Telegram posts updates to.
const WebhookPath = "/telegram/webhook/{" + middleware.SecretParam + "}"

const maxUpdateBytes = 1 << 20

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type Server struct {
	handler UpdateHandler
}

func NewServer(handler UpdateHandler) *Server {
	return &Server{handler: handler}
}

// NewRouter builds the webhook HTTP router.
func NewRouter(serviceName, secret string, handler UpdateHandler) http.Handler {
	s := NewServer(handler)
	r := chi.NewRouter()

	r.Use(otelchi.Middleware(serviceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(serviceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(sentry.HTTPMiddleware)

	r.Get("/health", s.HandleHealth)
	r.With(middleware.WebhookSecret(secret)).Post(WebhookPath, s.HandleWebhook)

	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleWebhook hands one update to the handler. Work it starts is not
// bound to the request context.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		slog.WarnContext(r.Context(), "Invalid webhook update", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.handler.HandleUpdate(context.WithoutCancel(r.Context()), update)
	w.WriteHeader(http.StatusOK)
}

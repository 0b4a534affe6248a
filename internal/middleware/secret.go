package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SecretTokenHeader carries the secret Telegram sends with webhook calls.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// SecretParam is the route parameter holding the webhook path secret.
const SecretParam = "secret"

// WebhookSecret rejects webhook calls that carry neither the secret in the
// path nor in the secret token header.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				slog.ErrorContext(r.Context(), "Webhook secret is not configured")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !matches(chi.URLParam(r, SecretParam), secret) && !matches(r.Header.Get(SecretTokenHeader), secret) {
				slog.WarnContext(r.Context(), "Webhook call with invalid secret", "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matches(got, want string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

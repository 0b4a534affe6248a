package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newSecretRouter(secret string) http.Handler {
	r := chi.NewRouter()
	r.With(WebhookSecret(secret)).Post("/telegram/webhook/{secret}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestWebhookSecret(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		path       string
		header     string
		wantStatus int
	}{
		{"path secret", "s3cret", "/telegram/webhook/s3cret", "", http.StatusOK},
		{"header secret", "s3cret", "/telegram/webhook/anything", "s3cret", http.StatusOK},
		{"wrong path secret", "s3cret", "/telegram/webhook/guess", "", http.StatusUnauthorized},
		{"wrong header secret", "s3cret", "/telegram/webhook/guess", "nope", http.StatusUnauthorized},
		{"prefix of secret", "s3cret", "/telegram/webhook/s3cre", "", http.StatusUnauthorized},
		{"no secret configured", "", "/telegram/webhook/x", "x", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(SecretTokenHeader, tt.header)
			}
			rr := httptest.NewRecorder()

			newSecretRouter(tt.secret).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

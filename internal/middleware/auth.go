package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	APIKeyKey    contextKey = "api_key"
	RequestIDKey contextKey = "request_id"
)

// KeyValidator checks a presented credential, typically the store's API key repository.
type KeyValidator interface {
	IsValid(ctx context.Context, candidate string) (bool, error)
}

// APIKeyAuth validates API key from Authorization header
func APIKeyAuth(keys KeyValidator, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			valid, err := keys.IsValid(r.Context(), apiKey)
			if err != nil {
				log.WithError(err).Error("api key lookup failed")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !valid {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserKey   contextKey = "user"
	APIKeyKey contextKey = "api_key"
)

// publicPaths bypass authentication and rate limiting
var publicPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// IsPublicPath reports whether path is served without an API key.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// APIKeyAuth validates API key from Authorization header. validKeys maps a
// user ID to that user's key.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			// constant-time comparison, every key is checked
			var user string
			for u, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					user = u
				}
			}
			if user == "" {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if err := ValidateUserID(user); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = context.WithValue(ctx, APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores the authenticated user ID in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserKey, userID)
}

// GetUserFromContext extracts the authenticated user ID
func GetUserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

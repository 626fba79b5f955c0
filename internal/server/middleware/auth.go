// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// userKey is the context key for storing the authenticated user.
const userKey ContextKey = "user"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (UserGetter, error)
}

// UserGetter extracts the user a token was issued to.
type UserGetter interface {
	GetUser() string
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the
// token's user to the request context. When allowed is non-empty, only those
// users are let through; everyone else gets 403.
func AuthMiddleware(validator TokenValidator, allowed []string) func(http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		allow[u] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user := claims.GetUser()
			if user == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if len(allow) > 0 && !allow[user] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], parts[1] != ""
}

// GetUser extracts the authenticated user from the request context.
func GetUser(r *http.Request) (string, error) {
	user, ok := r.Context().Value(userKey).(string)
	if !ok {
		return "", fmt.Errorf("user not found in request context")
	}
	return user, nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

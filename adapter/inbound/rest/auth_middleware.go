package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
)

type contextKey string

// ClientContextKey carries the validated client name through the request context.
const ClientContextKey contextKey = "client"

// publicRoutes are reachable without a session token.
var publicRoutes = map[string]bool{
	"/api/auth/token": true,
	"/health":         true,
	"/api/ws/changes": true,
}

// AuthMiddleware validates session tokens on protected routes.
type AuthMiddleware struct {
	authService inbound.AuthService
	logger      model.Logger
	enabled     bool
}

func NewAuthMiddleware(authService inbound.AuthService, logger model.Logger, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
		enabled:     enabled,
	}
}

// SetEnabled toggles authentication at runtime
func (m *AuthMiddleware) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// Middleware returns the HTTP middleware function for token validation
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || isPublicRoute(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := extractToken(r)
		if token == "" {
			m.unauthorized(w, r, "missing authorization token")
			return
		}

		client, err := m.authService.ValidateToken(token)
		if err != nil {
			m.unauthorized(w, r, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClientContextKey, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicRoute(path string) bool {
	return publicRoutes[path]
}

// extractToken pulls the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	m.logger.Warn("unauthorized request",
		"path", r.URL.Path,
		"method", r.Method,
		"remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

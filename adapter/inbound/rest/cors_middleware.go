package rest

import (
	"net/http"

	"github.com/mdreader/mdreaderd/config"
)

// CORSMiddleware answers preflight requests for the local UI origins.
type CORSMiddleware struct {
	enabled        bool
	allowedOrigins map[string]bool
	allowAll       bool
}

func NewCORSMiddleware(cfg *config.Config) *CORSMiddleware {
	m := &CORSMiddleware{
		enabled:        cfg.HTTP.CORS.Enabled,
		allowedOrigins: make(map[string]bool),
	}
	for _, origin := range cfg.HTTP.CORS.AllowedOrigins {
		if origin == "*" {
			m.allowAll = true
		}
		m.allowedOrigins[origin] = true
	}
	return m
}

func (m *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !m.enabled || origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if m.allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if m.allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

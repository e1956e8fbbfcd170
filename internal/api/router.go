package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	loginRateLimit    = 5
	refreshRateLimit  = 10
	registerRateLimit = 5
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.securityHeadersMiddleware)

	r.Get("/health_check", s.handleHealthCheck)

	r.With(s.rateLimitMiddleware(loginRateLimit, rateLimitWindow)).Post("/auth/login", s.handleLogin)
	r.With(s.rateLimitMiddleware(registerRateLimit, rateLimitWindow)).Post("/auth/register", s.handleRegister)
	r.Post("/auth/logout", s.handleLogout)
	r.With(s.rateLimitMiddleware(refreshRateLimit, rateLimitWindow)).Post("/auth/token_refresh", s.handleTokenRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/fulfillment/internal/execute", s.handleExecute)
		r.Post("/fulfillment/internal/query", s.handleQuery)
		r.Get("/fulfillment/internal/sync", s.handleSync)
	})

	r.Get("/lighthouse/ws", s.handleLighthouseWS)

	return r
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

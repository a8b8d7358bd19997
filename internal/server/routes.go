package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/env-check", h.EnvCheck)

	mux.HandleFunc("POST /api/generate", h.Generate)
	mux.HandleFunc("GET /api/generate", h.DescribeOperation)
	mux.HandleFunc("GET /api/download", h.Download)

	mux.HandleFunc("POST /api/auth/google", h.AuthGoogle)
	mux.HandleFunc("POST /api/auth/logout", h.AuthLogout)
	mux.HandleFunc("GET /api/auth/session", h.AuthSession)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

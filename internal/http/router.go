package http

import (
	"net/http"

	"github.com/paired-app/paired/internal/auth"
	"github.com/paired-app/paired/internal/config"
	"github.com/paired-app/paired/internal/favorite"
	"github.com/paired-app/paired/internal/gift"
	"github.com/paired-app/paired/internal/httputil"
	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/task"
	"github.com/paired-app/paired/internal/upload"
	"github.com/paired-app/paired/internal/whisper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers collects the per-domain handlers the router mounts.
type Handlers struct {
	Auth     *auth.Handler
	Gift     *gift.Handler
	Task     *task.Handler
	Whisper  *whisper.Handler
	Favorite *favorite.Handler
	Upload   *upload.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, handlers Handlers, guard *auth.Guard, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(middleware.Compress(5))        // Compress responses

	// Public routes
	r.Get("/health", handleHealth)
	r.Post("/api/identity", handlers.Auth.Identity)

	// Everything below requires a verified session
	r.Group(func(r chi.Router) {
		r.Use(guard.Require)
		r.Post("/api/profile", handlers.Auth.Profile)
		r.Post("/api/gift", handlers.Gift.ServeHTTP)
		r.Post("/api/task", handlers.Task.ServeHTTP)
		r.Post("/api/whisper", handlers.Whisper.ServeHTTP)
		r.Post("/api/favorite", handlers.Favorite.ServeHTTP)
		r.Post("/api/upload", handlers.Upload.ServeHTTP)
	})

	return r
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, "api is running", nil)
}

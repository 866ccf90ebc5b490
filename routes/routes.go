package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/agent-gateway/app"
	"github.com/upb/agent-gateway/handlers"
	"github.com/upb/agent-gateway/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", handlers.HealthCheck(deps))
	r.Get("/health/ready", handlers.ReadinessCheck(deps))

	if deps.Metrics != nil && deps.PromRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.PromRegistry, promhttp.HandlerOpts{}))
	}

	// Admin login
	r.Post("/auth/login", handlers.LoginHandler(deps))

	// Gateway surface (API key)
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.APIKeyMiddleware.RequireAPIKey)
		r.Post("/query", handlers.QueryHandler(deps))
		r.Get("/options", handlers.OptionsHandler(deps))
	})

	// Admin surface (JWT, admin role)
	r.Route("/admin", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Use(deps.AuthMiddleware.AdminOnly)
		r.Get("/usage", handlers.UsageStatsHandler(deps))
		r.Post("/notifications/{id}/ack", handlers.AcknowledgeNotificationHandler(deps))
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

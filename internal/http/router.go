package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/arcedo/fundflow-api/internal/auth"
	"github.com/arcedo/fundflow-api/internal/config"
	"github.com/arcedo/fundflow-api/internal/httputil"
	"github.com/arcedo/fundflow-api/internal/logging"
	"github.com/arcedo/fundflow-api/internal/review"
	"github.com/arcedo/fundflow-api/internal/stats"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	reviewHandler *review.Handler,
	statsHandler *stats.Handler,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
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

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		log.Println("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/login/google", authHandler.LoginWithGoogle)
		r.Get("/verifyEmail/{code}", authHandler.RedeemEmailVerification)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/verifyEmail", authHandler.RequestEmailVerification)
		})
	})

	// Project reviews and stats
	r.Route("/projects", func(r chi.Router) {
		// Public
		r.Get("/{id}/stats", statsHandler.GetProjectStats)
		r.Get("/stats/percentageViews", statsHandler.CategoryViewPercentages)
		r.Get("/{id}/reviews", reviewHandler.ListByProject)
		r.Get("/reviewing/byUser/{id}", reviewHandler.ListByReviewer)
		r.Get("/reviewed/byUser/{id}", reviewHandler.ListByCreator)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/{id}/stats/user", statsHandler.GetUserProjectStats)
			r.Post("/{id}/stats", statsHandler.RecordView)
			r.Put("/{id}/stats", statsHandler.UpdateStats)
			r.Post("/{id}/reviews", reviewHandler.Create)
			r.Delete("/{id}/reviews/{idReview}", reviewHandler.Delete)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

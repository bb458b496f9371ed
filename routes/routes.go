package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/avillia/receipt-service/app"
	"github.com/avillia/receipt-service/handlers"
	"github.com/avillia/receipt-service/middleware"
	"github.com/avillia/receipt-service/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "WWW-Authenticate"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewHealthHandler(healthChecks(deps), deps.RenderCache, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	authHandler := handlers.NewAuthHandler(deps.Identity, "/auth/login", deps.Logger)
	receiptHandler := handlers.NewReceiptHandler(deps.Receipts, deps.Logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/signup", authHandler.HandleSignup)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequirePermission)
			r.Patch("/add_role", authHandler.HandleAssignRole)
		})
	})

	r.Route("/receipts", func(r chi.Router) {
		// Printable receipts are shared by link
		r.Get("/{id}/text", receiptHandler.HandleText)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequirePermission)
			r.Post("/", receiptHandler.HandleCreate)
			r.Get("/", receiptHandler.HandleList)
			r.Get("/{id}", receiptHandler.HandleGet)
			r.Delete("/{id}", receiptHandler.HandleDelete)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})

	return r
}

func healthChecks(deps *app.Dependencies) map[string]handlers.HealthChecker {
	checks := make(map[string]handlers.HealthChecker)
	if deps.DB != nil {
		checks["database"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = handlers.HealthCheckFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

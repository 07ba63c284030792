package router

import (
	"ggshop-rest-api/internal/handler"
	"ggshop-rest-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler      *handler.Handler
	ShopHandler  *handler.ShopHandler
	AdminHandler *handler.AdminHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Session lifecycle + shop commands
		if cfg.ShopHandler != nil {
			r.Post("/sessions", cfg.ShopHandler.StartSession)
			r.Route("/sessions/{session_id}", func(r chi.Router) {
				r.Delete("/", cfg.ShopHandler.EndSession)
				r.Post("/buy", cfg.ShopHandler.Buy)
				r.Post("/claim", cfg.ShopHandler.ClaimFree)
				r.Post("/equip", cfg.ShopHandler.Equip)
				r.Get("/outfits", cfg.ShopHandler.ListOutfits)
				r.Post("/activate", cfg.ShopHandler.Activate)
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/catalog/reload", cfg.AdminHandler.ReloadCatalog)
				r.Get("/stats", cfg.AdminHandler.GetStats)
			})
		}
	})

	return r
}

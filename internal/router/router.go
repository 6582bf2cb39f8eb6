// internal/router/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/JesuisMat/Flopmap-back-offi/internal/api/search"
)

// Config contains dependencies needed for the router setup
type Config struct {
	SearchHandler *search.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "https://flopmap.com"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Heartbeat/Health check endpoint (public)
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", cfg.SearchHandler.Health)

		r.Group(func(r chi.Router) {
			// Each search fans out to several provider calls; keep callers honest.
			r.Use(httprate.LimitByIP(10, 1*time.Minute))
			r.Post("/search", cfg.SearchHandler.SearchWorstRated)
		})

		r.Get("/search/suggestions", cfg.SearchHandler.GetSuggestions)
	})

	return r
}

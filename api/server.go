/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for notebooks and dashboards

ROUTE GROUPS:
  /healthz              Liveness check
  /api/study            Study definition
  /api/populations      Populations of interest
  /api/statistics/*     Crude rate and ASDR
  /api/tables/*         Source table management

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tune the router. The zero value is usable.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows local development origins.
	AllowedOrigins []string
	// Quiet disables request logging (tests).
	Quiet bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080", "http://localhost:8888"}
	}

	// Middleware
	if !opts.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/study", h.GetStudy)
		r.Get("/populations", h.ListPopulations)

		r.Route("/statistics", func(r chi.Router) {
			r.Get("/", h.GetStatistics)
			r.Get("/{id}", h.GetPopulationStatistics)
		})

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", h.ListTables)
			r.Get("/{name}", h.GetTable)
			r.Put("/{name}", h.PutTable)
			r.Delete("/{name}", h.DeleteTable)
		})
	})

	return r
}

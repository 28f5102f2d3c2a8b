/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the board frontend
  5. Metrics:    Request counter and duration histogram
  6. Identity:   Bearer token -> acting identity (when tokens are enabled)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shenglong/mealboard/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(metricsMiddleware)
	if h.Issuer != nil {
		r.Use(h.Issuer.Middleware)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Board routes
		r.Get("/board", h.GetBoard)
		r.Post("/board/week", h.ChangeWeek)

		// People routes
		r.Route("/people", func(r chi.Router) {
			r.Post("/", h.AddPerson)
			r.Route("/{name}", func(r chi.Router) {
				r.Delete("/", h.DeletePerson)
				r.Get("/authorize", h.AuthorizePerson)
				r.Post("/rename", h.RenamePerson)
				r.Put("/headcount", h.SetHeadcount)
				r.Post("/toggle", h.ToggleSlot)
				r.Put("/week", h.BulkEditWeek)
			})
		})

		// Auth routes
		r.Post("/auth/token", h.IssueToken)
	})

	// Operational routes
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// metricsMiddleware records request counts and latency.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

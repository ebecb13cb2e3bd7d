// Package httpapi assembles the chi router for the service.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deckconv/internal/httpapi/handlers"
	"deckconv/internal/httpkit"
	"deckconv/internal/pkg/logger"
	"deckconv/internal/pkg/middleware"
)

func NewRouter(h *handlers.Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/jobs", h.SubmitJob)
		r.Get("/jobs/{jobID}", h.GetJob)
	})

	return r
}

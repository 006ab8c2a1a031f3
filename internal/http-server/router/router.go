package router

import (
	"net/http"

	"doc-converter/internal/http-server/handler/document"
	"doc-converter/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	DocumentHandler *document.DocumentHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", h.DocumentHandler.Upload)
			r.Get("/{name}/url", h.DocumentHandler.SignedURL)
		})

		r.Post("/runs", h.DocumentHandler.TriggerRun)
		r.Get("/conversions", h.DocumentHandler.ListConversions)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}

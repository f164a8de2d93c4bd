package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles every HTTP route of the wall. realtime serves GET /ws.
func NewRouter(public *PublicHandler, admin *AdminHandler, realtime http.Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		LoggingMiddleware(logger),
		cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", AdminKeyHeader},
			MaxAge:         300,
		}),
	)

	r.Get("/", public.Banner)
	r.Get("/sections", public.Sections)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/ws", realtime)

	r.Route("/api/admin", admin.Routes)
	return r
}

package app

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/futureblink-ai/internal/adapter/httpserver"
	"github.com/fairyhunter13/futureblink-ai/internal/adapter/observability"
	"github.com/fairyhunter13/futureblink-ai/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	// tracing first so the request logger carries the trace and span ids
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.AllowedOrigins()),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(srv.NotFoundHandler())
	r.MethodNotAllowed(srv.MethodNotAllowedHandler())

	r.Route("/api", func(api chi.Router) {
		api.Use(httpserver.TimeoutMiddleware(cfg.HTTPRequestTimeout))
		api.Post("/ask-ai", srv.AskHandler())
		api.Post("/save", srv.SaveHandler())
		api.Get("/prompts", srv.ListPromptsHandler())
		api.Delete("/prompts/{id}", srv.DeletePromptHandler())
		api.Post("/render", srv.RenderHandler())
		api.Get("/health", srv.HealthHandler())
	})

	// Health and metrics
	r.Get("/health", srv.HealthHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Browser shell
	ui := srv.UIHandler()
	r.Get("/", ui.ServeHTTP)
	r.Get("/app.js", ui.ServeHTTP)
	r.Get("/app.css", ui.ServeHTTP)

	return httpserver.SecurityHeaders(r)
}

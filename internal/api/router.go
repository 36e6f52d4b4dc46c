package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juleba580/Foot-Perf-IA/internal/web"
)

// NewRouter assembles the prediction service's HTTP surface. Health, the
// banner and /metrics are public; everything under /api/predict that mutates
// or reads user data requires a valid token.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(web.RequestLogger)
	r.Use(web.Observe(h.metrics))
	r.Use(web.CORS(h.frontendURL))

	r.Get("/", h.Home)
	r.Get("/api/predict/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.tokens.RequireAuth)
		r.Post("/api/predict/single", h.Single)
		r.Post("/api/predict/batch", h.Batch)
		r.Post("/api/predict/recommendations", h.Recommendations)
		r.Get("/api/predict/history", h.History)
	})

	return r
}

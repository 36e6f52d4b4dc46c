package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juleba580/Foot-Perf-IA/internal/web"
)

// NewRouter assembles the authentication service's HTTP surface.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(web.RequestLogger)
	r.Use(web.Observe(h.metrics))
	r.Use(web.CORS(h.frontendURL))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "auth-api",
			"status":  "running",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "healthy",
			"service": "auth-api",
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/google", h.GoogleLogin)
		r.Get("/google/callback", h.GoogleCallback)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.tokens.RequireAuth)
			r.Get("/me", h.Me)
			r.Get("/profile", h.Profile)
			r.Put("/profile/update", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
		})
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mindcare/backend/internal/auth"
	"mindcare/backend/internal/handlers"
	"mindcare/backend/internal/metrics"
	"mindcare/backend/internal/middleware"
)

// New builds the HTTP surface. Every /api route except the public ones
// below requires a bearer token.
func New(api *handlers.API, authService *auth.Service, limiter *middleware.RateLimiter, origin string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Headers(origin))

	r.Get("/healthz", api.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter))
			}
			r.Get("/", api.Info)
			r.Post("/auth/register", api.Register)
			r.Post("/auth/login", api.Login)
			r.Get("/resources", api.ListResources)
			r.Get("/resources/{country}", api.CountryResources)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authService))
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter))
			}
			RegisterRoutes(r, api)
		})

		// Browsers cannot send headers on the handshake, so only the socket
		// takes its token from the query string.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSocketAuth(authService))
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter))
			}
			r.Get("/ws", api.WebSocket)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("{\"error\":\"not found\"}"))
	})
	return r
}

// RegisterRoutes mounts the authenticated API on r.
func RegisterRoutes(r chi.Router, api *handlers.API) {
	r.Get("/messages", api.ListMessages)
	r.Post("/messages", api.CreateMessage)
	r.Delete("/messages", api.DeleteMessages)
	r.Post("/messages/ai-response", api.AIResponse)

	r.Post("/chat", api.Chat)

	r.Get("/sessions", api.ListSessions)
	r.Post("/sessions", api.CreateSession)

	r.Get("/moods", api.ListMoods)
	r.Post("/moods", api.LogMood)
	r.Get("/moods/stats", api.MoodStats)
	r.Get("/tracker", api.Tracker)

	r.Get("/user/profile", api.Profile)
	r.Put("/user/profile", api.UpdateProfile)
	r.Put("/user/preferences", api.UpdatePreferences)
}

package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnshRaj112/nutrilog-backend/internal/handlers"
	"github.com/AnshRaj112/nutrilog-backend/internal/middleware"
)

// Options carries the middleware the authenticated routes run behind.
type Options struct {
	Auth      middleware.AuthConfig
	Limiter   middleware.Limiter
	RateLimit int
}

func SetupRoutes(r chi.Router, api *handlers.API, opts Options) {
	// Health and metrics (no auth, no rate limit)
	r.Get("/health", handlers.Health)
	r.Get("/health/db", api.HealthDB)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Limit before rejecting so unauthenticated floods are counted per IP
		r.Use(middleware.Identify(opts.Auth))
		if opts.Limiter != nil {
			r.Use(middleware.RateLimit(opts.Limiter, opts.RateLimit))
		}
		r.Use(middleware.RequireUser)

		// Meal routes
		r.Post("/meals", api.CreateMeal)
		r.Get("/meals", api.ListMeals)
		r.Patch("/meals/{id}", api.UpdateMeal)
		r.Delete("/meals/{id}", api.DeleteMeal)

		// Water routes
		r.Post("/water", api.CreateWater)
		r.Get("/water", api.ListWater)
		r.Delete("/water/{id}", api.DeleteWater)

		r.Get("/diary", api.GetDiary)
		r.Get("/streak", api.GetStreak)

		r.Get("/goals", api.GetGoals)
		r.Put("/goals", api.PutGoals)

		r.Get("/me", api.GetMe)
		r.Patch("/me/timezone", api.UpdateTimezone)

		r.Get("/activity", api.GetActivity)
	})

	// Browsers cannot set headers on a WebSocket handshake; Auth also reads ?token=
	r.With(middleware.Auth(opts.Auth)).Get("/ws/events", api.EventsWebSocket)
}

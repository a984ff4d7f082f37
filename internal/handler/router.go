/*
Package handler provides the HTTP handlers and routing setup for the bot's
control dashboard.

This file defines the main Router, applying necessary middleware like
logging, CORS, and IP-based rate limiting before delegating requests to the
status, log, and control handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"howdybot/internal/pkg/limiter"
	"howdybot/internal/pkg/logx"
	"howdybot/internal/pkg/resp"
)

const (
	// ControlRate limits the control endpoints (stop/send) per IP.
	ControlRate  = 0.5
	ControlBurst = 3
)

// Router sets up the dashboard routing table (chi.Router). It configures
// CORS from the allowed-origins setting and rate-limits the control
// endpoints.
func Router(deps *AppDeps) http.Handler {
	controlLimiter := limiter.NewIPRateLimiter(rate.Limit(ControlRate), ControlBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "Howdy Bot",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/status", HandleStatus(deps))
		api.Get("/logs", HandleLogs(deps))
		api.Get("/users", HandleUsers(deps))
		api.Get("/rooms", HandleRooms(deps))
		api.Get("/features", HandleFeatures(deps))

		api.Route("/control", func(control chi.Router) {
			control.Use(controlLimiter.Middleware)
			control.Post("/stop", HandleStop(deps))
			control.Post("/send", HandleSend(deps))
		})
	})

	return r
}

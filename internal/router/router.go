// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router wires the pipeline's HTTP routes and middleware chains.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"limoseo/internal/auth"
	"limoseo/internal/handlers"
	"limoseo/internal/middleware"
)

// Config holds everything the router needs.
type Config struct {
	API  *handlers.API
	Auth auth.Authenticator

	// Checks are run by /health.
	Checks map[string]handlers.Check

	// GenerateLimit throttles the endpoints that call the model. Nil
	// disables throttling.
	GenerateLimit *middleware.RateLimiter
}

// New creates the chi router.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", handlers.Health(cfg.Checks))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Auth))
		r.Use(middleware.RequireCaller)

		r.Route("/content", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.GenerateLimit != nil {
					r.Use(cfg.GenerateLimit.Middleware)
				}
				r.Post("/generate", cfg.API.Generate)
				r.Post("/batch", cfg.API.GenerateBatch)
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Post("/batch", cfg.API.BatchApprove)
				r.Get("/pending", cfg.API.PendingApprovals)
				r.Get("/stats", cfg.API.ApprovalStats)
			})
			r.Post("/{contentID}/approval", cfg.API.SetApproval)
			r.Post("/{contentID}/revision", cfg.API.RequestRevision)
		})

		r.Route("/regeneration", func(r chi.Router) {
			r.Post("/auto", cfg.API.AutoRegenerate)
			r.Get("/status", cfg.API.RegenerationStatus)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", cfg.API.ListSchedules)
			r.Post("/", cfg.API.CreateSchedule)
			r.Get("/history", cfg.API.ScheduleHistory)
			r.Route("/{scheduleID}", func(r chi.Router) {
				r.Patch("/", cfg.API.UpdateSchedule)
				r.Delete("/", cfg.API.DeleteSchedule)
				r.Post("/toggle", cfg.API.ToggleSchedule)
				// Manual runs call the model like the generate endpoints.
				r.Group(func(r chi.Router) {
					if cfg.GenerateLimit != nil {
						r.Use(cfg.GenerateLimit.Middleware)
					}
					r.Post("/execute", cfg.API.ExecuteSchedule)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"code":"not-found","message":"no such endpoint"}`))
	})

	return r
}

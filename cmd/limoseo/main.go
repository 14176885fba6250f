// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command limoseo serves the content pipeline API and runs the scheduled
// regeneration triggers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"limoseo/internal/app"
	"limoseo/internal/auth"
	"limoseo/internal/config"
	"limoseo/internal/handlers"
	"limoseo/internal/middleware"
	"limoseo/internal/router"
	"limoseo/internal/scheduler"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	if cfg == nil {
		return
	}
	slog.SetDefault(app.NewLogger(cfg))
	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run serves until a shutdown signal or a server error. Deferred cleanup
// runs before main decides the exit code.
func run(cfg *config.Config) error {
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing connections", "error", err)
		}
	}()

	tokens, err := auth.NewTokenAuthenticator(cfg.APITokens)
	if err != nil {
		return fmt.Errorf("invalid api tokens: %w", err)
	}
	authn := auth.Chain{tokens}
	if a.Valkey != nil {
		authn = append(authn, auth.NewSessionAuthenticator(a.Valkey))
	}
	if tokens.Len() == 0 && a.Valkey == nil {
		slog.Warn("no api tokens and no session store configured, every api call will be rejected")
	}

	var statusCache handlers.StatusCache
	if a.StatusCache != nil {
		statusCache = a.StatusCache
	}
	api := handlers.NewAPI(a.Generator, a.Batch, a.Approvals, a.Regen, a.Schedules, statusCache)

	// Each generation call costs a model request.
	limiter := middleware.NewRateLimiter(30, time.Minute)
	defer limiter.Stop()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.New(router.Config{
			API:           api,
			Auth:          authn,
			Checks:        a.Checks,
			GenerateLimit: limiter,
		}),
		ReadTimeout: 10 * time.Second,
		// Batches wait for every pair, each bounded by the AI timeout.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	var sched *scheduler.Scheduler
	if !cfg.DisableScheduler {
		loc, _ := cfg.Location()
		sched = scheduler.New(loc, a.Locker)
		for _, job := range a.Triggers().Jobs(cfg.DailySpec, cfg.HourlySpec, cfg.SchedulesSpec) {
			if err := sched.Add(job); err != nil {
				return fmt.Errorf("invalid schedule for %s: %w", job.Name, err)
			}
		}
		sched.Start()
		defer sched.Stop()
		slog.Info("scheduler started",
			"timezone", cfg.Timezone,
			"daily", cfg.DailySpec,
			"hourly", cfg.HourlySpec,
			"schedules", cfg.SchedulesSpec,
		)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package app assembles the pipeline's services from a Config. The server
// and pipelinectl share it so both run the same operations against the same
// store.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"limoseo/internal/ai"
	"limoseo/internal/approval"
	"limoseo/internal/batch"
	"limoseo/internal/cache"
	"limoseo/internal/catalog"
	"limoseo/internal/config"
	"limoseo/internal/content"
	"limoseo/internal/database"
	"limoseo/internal/docstore"
	"limoseo/internal/handlers"
	"limoseo/internal/notify"
	"limoseo/internal/regen"
	"limoseo/internal/scheduler"
	"limoseo/internal/schedules"
)

// App holds the wired services and the connections they run on.
type App struct {
	Config   *config.Config
	Store    docstore.Store
	Catalog  *catalog.Catalog
	AI       *ai.Registry
	Notifier notify.Notifier

	Generator *content.Generator
	Batch     *batch.Orchestrator
	Approvals *approval.Workflow
	Regen     *regen.Service
	Worker    *regen.Worker
	Schedules *schedules.Manager

	// Valkey is nil when no Valkey host is configured.
	Valkey      *redis.Client
	Locker      scheduler.Locker
	StatusCache *cache.StatusCache

	// Checks are the dependency checks reported by /health.
	Checks map[string]handlers.Check

	closers []func() error
}

// NewLogger returns the process logger: text in development, JSON otherwise.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// New connects to the configured backends and wires every service. The
// caller must Close the App.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Checks: map[string]handlers.Check{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.CatalogPath != "" {
		a.Catalog, err = catalog.Load(cfg.CatalogPath)
	} else {
		a.Catalog, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, a.Store, a.Catalog); err != nil {
			return nil, fmt.Errorf("seed store: %w", err)
		}
	}

	if cfg.ValkeyEnabled() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
		if err != nil {
			return nil, err
		}
		a.Valkey = client
		a.closers = append(a.closers, client.Close)
		a.Locker = cache.NewRunLock(client)
		a.StatusCache = cache.NewStatusCache(client, cache.DefaultStatusTTL)
		a.Checks["valkey"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		slog.Warn("valkey not configured, run locks are process-local")
		a.Locker = scheduler.NewLocalLocker()
	}

	a.Notifier = notify.LogNotifier{}
	if cfg.SendGridAPIKey != "" {
		sg, err := notify.NewSendGrid(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.NotifyFrom,
			FromName:  cfg.NotifyFromName,
			To:        cfg.NotifyTo,
		})
		if err != nil {
			return nil, err
		}
		a.Notifier = sg
	}

	a.AI = ai.NewRegistry(cfg.AIProvider, cfg.Providers(), cfg.AITimeout)
	slog.Info("ai providers initialized",
		"active", a.AI.ActiveName(),
		"available", a.AI.Available(),
	)

	a.Generator = content.NewGenerator(a.Store, a.AI, a.Catalog, content.Options{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Vision:          cfg.Vision,
	})
	a.Batch = batch.NewOrchestrator(a.Store, a.Generator)
	a.Approvals = approval.NewWorkflow(a.Store)
	a.Regen = regen.NewService(a.Store, a.Notifier)
	a.Worker = regen.NewWorker(a.Store, a.Generator)
	a.Schedules = schedules.NewManager(a.Store, a.Batch, a.Notifier)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Backend {
	case config.BackendMemory:
		slog.Warn("using the in-memory document store, data is lost on exit")
		a.Store = docstore.NewMemory()

	case config.BackendPostgres:
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(db); err != nil {
			return err
		}
		a.Store = docstore.NewPostgres(db)
		a.Checks["postgres"] = pingSQL(db)

	case config.BackendMongo:
		client, err := docstore.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		a.Store = docstore.NewMongo(client, cfg.MongoDatabase)
		a.Checks["mongo"] = pingMongo(client)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	slog.Info("document store ready", "backend", cfg.Backend)
	return nil
}

// Triggers returns the scheduled runs configured for this App.
func (a *App) Triggers() *scheduler.Triggers {
	t := &scheduler.Triggers{
		Selector:   a.Regen,
		Worker:     a.Worker,
		Schedules:  a.Schedules,
		Threshold:  a.Config.Threshold,
		DailyMax:   a.Config.DailyMax,
		QueueMax:   a.Config.QueueMax,
		StaleAfter: a.Config.StaleAfter,
	}
	if a.StatusCache != nil {
		t.Changed = a.StatusCache.Invalidate
	}
	return t
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func pingSQL(db *sql.DB) handlers.Check {
	return db.PingContext
}

func pingMongo(client *mongo.Client) handlers.Check {
	return func(ctx context.Context) error { return client.Ping(ctx, nil) }
}

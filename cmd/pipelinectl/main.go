// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command pipelinectl runs the regeneration triggers once, for external
// cron or manual operation, and prints the result as JSON.
//
//	pipelinectl select  [--max N] [--no-notify]
//	pipelinectl process [--max N]
//	pipelinectl sweep   [--older-than D]
//	pipelinectl run-schedules [--id ID]
//	pipelinectl status
//	pipelinectl hash-token --id ID [--role ROLE]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"limoseo/internal/app"
	"limoseo/internal/auth"
	"limoseo/internal/config"
	"limoseo/internal/regen"
	"limoseo/internal/scheduler"
)

// errLocked is returned when another process holds the run lock.
var errLocked = errors.New("another run holds the lock")

type options struct {
	Config config.Config `group:"Pipeline configuration"`

	Select    selectCmd    `command:"select" description:"Queue low-scoring content for regeneration"`
	Process   processCmd   `command:"process" description:"Regenerate pending queue tasks"`
	Sweep     sweepCmd     `command:"sweep" description:"Fail processing tasks abandoned by a crashed worker"`
	Schedules schedulesCmd `command:"run-schedules" description:"Run due content schedules, or one schedule by id"`
	Status    statusCmd    `command:"status" description:"Print queue counts and recent run logs"`
	HashToken hashTokenCmd `command:"hash-token" description:"Generate an API token and its API_TOKENS entry"`
}

// env is shared by the commands once the configuration is parsed.
type env struct {
	cfg *config.Config
	ctx context.Context
	out io.Writer
}

var current env

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, out io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := opts.Config.Validate(); err != nil {
			return err
		}
		slog.SetDefault(app.NewLogger(&opts.Config))
		current = env{cfg: &opts.Config, ctx: ctx, out: out}
		return cmd.Execute(args)
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				return 0
			}
			return 2
		}
		slog.Error("command failed", "error", err)
		if errors.Is(err, errLocked) {
			return 3
		}
		return 1
	}
	return 0
}

// withApp opens the pipeline, takes the named run lock and calls fn.
func withApp(lock string, timeout time.Duration, fn func(ctx context.Context, a *app.App) (any, error)) error {
	a, err := app.New(current.ctx, current.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(current.ctx, timeout)
	defer cancel()

	if lock != "" {
		release, ok, err := a.Locker.TryLock(ctx, lock, timeout)
		if err != nil {
			return fmt.Errorf("take run lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("%s: %w", lock, errLocked)
		}
		defer release()
	}

	res, err := fn(ctx, a)
	if err != nil {
		return err
	}
	if a.StatusCache != nil && lock != "" {
		a.StatusCache.Invalidate(ctx)
	}
	return printJSON(current.out, res)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type selectCmd struct {
	Max      int  `long:"max" description:"Tasks to queue (default: daily max)"`
	NoNotify bool `long:"no-notify" description:"Do not email operators"`
}

func (c *selectCmd) Execute([]string) error {
	return withApp(scheduler.JobDailySelection, scheduler.DailyTimeout, func(ctx context.Context, a *app.App) (any, error) {
		limit := c.Max
		if limit <= 0 {
			limit = current.cfg.DailyMax
		}
		return a.Regen.RunSelection(ctx, regen.RunOptions{
			Threshold:   current.cfg.Threshold,
			MaxPerRun:   limit,
			TriggeredBy: "pipelinectl",
			Notify:      !c.NoNotify,
		})
	})
}

type processCmd struct {
	Max int `long:"max" description:"Tasks to process (default: queue max)"`
}

func (c *processCmd) Execute([]string) error {
	return withApp(scheduler.JobHourlyQueue, scheduler.HourlyTimeout, func(ctx context.Context, a *app.App) (any, error) {
		limit := c.Max
		if limit <= 0 {
			limit = current.cfg.QueueMax
		}
		return a.Worker.ProcessQueue(ctx, regen.QueueOptions{MaxPerRun: limit, TriggeredBy: "pipelinectl"})
	})
}

type sweepCmd struct {
	OlderThan time.Duration `long:"older-than" description:"Processing age considered stale (default: stale-after)"`
}

func (c *sweepCmd) Execute([]string) error {
	return withApp(scheduler.JobHourlyQueue, scheduler.HourlyTimeout, func(ctx context.Context, a *app.App) (any, error) {
		age := c.OlderThan
		if age <= 0 {
			age = current.cfg.StaleAfter
		}
		n, err := a.Worker.SweepStale(ctx, age, "pipelinectl")
		if err != nil {
			return nil, err
		}
		return map[string]int{"swept": n}, nil
	})
}

type schedulesCmd struct {
	ID string `long:"id" description:"Run this schedule now, even when disabled or not due"`
}

func (c *schedulesCmd) Execute([]string) error {
	return withApp(scheduler.JobScheduled, scheduler.ScheduledTimeout, func(ctx context.Context, a *app.App) (any, error) {
		if c.ID != "" {
			return a.Schedules.Execute(ctx, auth.System(), c.ID)
		}
		return a.Schedules.RunDue(ctx)
	})
}

type statusCmd struct{}

func (c *statusCmd) Execute([]string) error {
	return withApp("", time.Minute, func(ctx context.Context, a *app.App) (any, error) {
		return regen.ReadStatus(ctx, a.Store)
	})
}

type hashTokenCmd struct {
	ID   string `long:"id" required:"true" description:"Token id"`
	Role string `long:"role" default:"admin" choice:"admin" choice:"superadmin" choice:"editor" description:"Token role"`
}

// Execute prints a fresh token and the entry to add to API_TOKENS. It
// needs no backend.
func (c *hashTokenCmd) Execute([]string) error {
	secret, err := auth.NewSecret()
	if err != nil {
		return err
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return err
	}
	return printJSON(current.out, map[string]string{
		"token": c.ID + "." + secret,
		"entry": c.ID + ":" + c.Role + ":" + hash,
	})
}

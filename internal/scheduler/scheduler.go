// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs the pipeline triggers on cron schedules. Each run
// takes a named lock first, so overlapping instances never run the same
// trigger at once.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a run whose Job sets no Timeout.
const DefaultJobTimeout = 30 * time.Minute

// Locker hands out named, time-bounded run locks. *cache.RunLock
// implements it across instances; LocalLocker within one process.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Job is one scheduled trigger.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs Jobs on their cron specs in a fixed timezone.
type Scheduler struct {
	cron   *cron.Cron
	locker Locker
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler evaluating specs in loc. A nil locker means a
// LocalLocker.
func New(loc *time.Location, locker Locker) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		locker: locker,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. It fails on an invalid cron spec.
func (s *Scheduler) Add(job Job) error {
	if job.Timeout <= 0 {
		job.Timeout = DefaultJobTimeout
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.RunJob(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	slog.Info("job scheduled", "job", job.Name, "spec", job.Spec, "location", s.cron.Location().String())
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running ones and waits for them.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
}

// RunJob runs job once under its lock and timeout. A run that finds the
// lock taken is skipped. Errors and panics are logged, never propagated.
func (s *Scheduler) RunJob(ctx context.Context, job Job) {
	runJob(ctx, s.locker, job)
}

func runJob(ctx context.Context, locker Locker, job Job) {
	if job.Timeout <= 0 {
		job.Timeout = DefaultJobTimeout
	}
	release, ok, err := locker.TryLock(ctx, job.Name, job.Timeout)
	if err != nil {
		slog.Error("job lock failed", "job", job.Name, "error", err)
		return
	}
	if !ok {
		slog.Info("job skipped, already running elsewhere", "job", job.Name)
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, job.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("job panic recovered",
				"job", job.Name,
				"error", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := job.Run(ctx); err != nil {
		slog.Error("job failed", "job", job.Name, "duration", time.Since(start).String(), "error", err)
		return
	}
	slog.Info("job finished", "job", job.Name, "duration", time.Since(start).String())
}

// LocalLocker is an in-process Locker. Lock expiry is not enforced; the
// holder always releases.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// TryLock implements Locker.
func (l *LocalLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, true, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package scheduler

import (
	"context"
	"fmt"
	"time"

	"limoseo/internal/auth"
	"limoseo/internal/regen"
	"limoseo/internal/schedules"
)

// Job names, also used as lock names.
const (
	JobDailySelection = "daily-selection"
	JobHourlyQueue    = "hourly-queue"
	JobScheduled      = "scheduled-generation"
)

// Trigger timeouts. The queue run must finish before the next hour starts.
const (
	DailyTimeout     = 30 * time.Minute
	HourlyTimeout    = 55 * time.Minute
	ScheduledTimeout = 55 * time.Minute
)

// Triggers are the scheduled pipeline runs. The server schedules them and
// pipelinectl runs them one-shot.
type Triggers struct {
	Selector *regen.Service
	Worker   *regen.Worker
	// Schedules is optional; without it no scheduled generation job runs.
	Schedules *schedules.Manager

	Threshold  float64
	DailyMax   int
	QueueMax   int
	StaleAfter time.Duration

	// Changed, when set, is called after a run that may have changed the
	// queue.
	Changed func(ctx context.Context)
}

// DailySelection queues low-scoring content and notifies operators.
func (t *Triggers) DailySelection(ctx context.Context) error {
	_, err := t.Selector.RunSelection(ctx, regen.RunOptions{
		Threshold:   t.Threshold,
		MaxPerRun:   t.DailyMax,
		TriggeredBy: auth.SchedulerID,
		Notify:      true,
	})
	t.changed(ctx)
	if err != nil {
		return fmt.Errorf("daily selection: %w", err)
	}
	return nil
}

// HourlyQueue fails stale processing tasks, then drains up to QueueMax
// pending tasks.
func (t *Triggers) HourlyQueue(ctx context.Context) error {
	defer t.changed(ctx)
	if _, err := t.Worker.SweepStale(ctx, t.StaleAfter, auth.SchedulerID); err != nil {
		return fmt.Errorf("sweep stale tasks: %w", err)
	}
	if _, err := t.Worker.ProcessQueue(ctx, regen.QueueOptions{MaxPerRun: t.QueueMax, TriggeredBy: auth.SchedulerID}); err != nil {
		return fmt.Errorf("process queue: %w", err)
	}
	return nil
}

// ScheduledGeneration runs every content schedule whose next run has passed.
func (t *Triggers) ScheduledGeneration(ctx context.Context) error {
	if t.Schedules == nil {
		return nil
	}
	res, err := t.Schedules.RunDue(ctx)
	if err != nil {
		return fmt.Errorf("scheduled generation: %w", err)
	}
	if res.Failed > 0 {
		return fmt.Errorf("scheduled generation: %d of %d schedules failed", res.Failed, res.Due)
	}
	return nil
}

// Jobs returns the scheduled jobs for the given cron specs.
func (t *Triggers) Jobs(dailySpec, hourlySpec, schedulesSpec string) []Job {
	jobs := []Job{
		{Name: JobDailySelection, Spec: dailySpec, Timeout: DailyTimeout, Run: t.DailySelection},
		{Name: JobHourlyQueue, Spec: hourlySpec, Timeout: HourlyTimeout, Run: t.HourlyQueue},
	}
	if t.Schedules != nil {
		jobs = append(jobs, Job{Name: JobScheduled, Spec: schedulesSpec, Timeout: ScheduledTimeout, Run: t.ScheduledGeneration})
	}
	return jobs
}

func (t *Triggers) changed(ctx context.Context) {
	if t.Changed != nil {
		t.Changed(context.WithoutCancel(ctx))
	}
}

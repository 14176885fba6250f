// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package schedules

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/google/uuid"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/batch"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
	"limoseo/internal/notify"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// Execute runs a schedule now on behalf of an admin, even when it is
// disabled.
func (m *Manager) Execute(ctx context.Context, caller *auth.Caller, id string) (*models.ScheduleExecution, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, s, models.TriggerManual, caller)
}

// DueResult reports a pass over the due schedules.
type DueResult struct {
	Due      int `json:"due"`
	Executed int `json:"executed"`
	Failed   int `json:"failed"`
}

// RunDue runs every enabled schedule whose next run time has passed, oldest
// first. A schedule that cannot be run is logged and the rest still run.
func (m *Manager) RunDue(ctx context.Context) (*DueResult, error) {
	list, err := m.query(ctx, docstore.Query{Collection: models.CollectionSchedules}.
		Where("enabled", docstore.Eq, true))
	if err != nil {
		return nil, err
	}
	now := m.now()
	due := slices.DeleteFunc(list, func(s models.Schedule) bool {
		return s.NextExecutionAt == nil || s.NextExecutionAt.After(now)
	})
	slices.SortStableFunc(due, func(a, b models.Schedule) int {
		if c := a.NextExecutionAt.Compare(*b.NextExecutionAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	res := &DueResult{Due: len(due)}
	if len(due) == 0 {
		slog.Debug("no scheduled generations due")
		return res, nil
	}
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		if _, err := m.run(ctx, &due[i], models.TriggerScheduled, auth.System()); err != nil {
			res.Failed++
			slog.Error("scheduled generation failed", "schedule_id", due[i].ID, "error", err)
			continue
		}
		res.Executed++
	}
	slog.Info("scheduled generations processed", "due", res.Due, "executed", res.Executed, "failed", res.Failed)
	return res, nil
}

// run generates the schedule's missing pages, records the execution and
// moves the schedule to its next run. The next run advances even when the
// batch fails.
func (m *Manager) run(ctx context.Context, s *models.Schedule, trigger string, caller *auth.Caller) (*models.ScheduleExecution, error) {
	start := m.now()
	exec := &models.ScheduleExecution{
		ID:           uuid.NewString(),
		ScheduleID:   s.ID,
		ScheduleName: s.Name,
		Status:       models.ExecutionRunning,
		StartedAt:    start.UTC(),
		TriggeredBy:  trigger,
	}
	if trigger == models.TriggerManual {
		exec.TriggeredByUserID = caller.ID
	}
	if err := m.store.Set(ctx, models.CollectionScheduleExecutions, exec.ID, exec); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("record execution of %s: %w", s.ID, err))
	}
	slog.Info("scheduled generation started", "execution_id", exec.ID, "schedule_id", s.ID, "name", s.Name, "trigger", trigger)

	pairs, skipped, err := m.missingPairs(ctx, s)
	exec.ItemsSkipped = skipped
	switch {
	case err != nil:
		exec.Status = models.ExecutionFailed
		exec.ErrorMessage = err.Error()
	case len(pairs) == 0:
		exec.Status = models.ExecutionCompleted
	default:
		res, err := m.runner.GenerateBatch(ctx, caller, batch.Request{WebsiteID: s.WebsiteID, Pairs: pairs})
		if err != nil {
			exec.Status = models.ExecutionFailed
			exec.ErrorMessage = err.Error()
			break
		}
		exec.BatchJobID = res.JobID
		exec.ItemsProcessed = res.Total
		exec.ItemsSucceeded = res.Generated
		exec.ItemsFailed = res.Failed
		exec.Status = executionStatus(res.Generated, res.Failed)
	}

	finished := m.now()
	done := finished.UTC()
	exec.CompletedAt = &done
	exec.DurationMs = finished.Sub(start).Milliseconds()

	bg := context.WithoutCancel(ctx)
	if err := m.store.Set(bg, models.CollectionScheduleExecutions, exec.ID, exec); err != nil {
		slog.Error("execution record update failed", "execution_id", exec.ID, "error", err)
	}
	fields := map[string]any{"lastExecutedAt": done}
	if next, err := NextRun(s.CronExpression, s.Timezone, finished); err == nil {
		fields["nextExecutionAt"] = next
	} else {
		slog.Error("schedule next run", "schedule_id", s.ID, "cron", s.CronExpression, "error", err)
	}
	if err := m.store.Update(bg, models.CollectionSchedules, s.ID, fields); err != nil {
		slog.Warn("schedule run time update failed", "schedule_id", s.ID, "error", err)
	}

	slog.Info("scheduled generation finished",
		"execution_id", exec.ID,
		"schedule_id", s.ID,
		"status", exec.Status,
		"processed", exec.ItemsProcessed,
		"succeeded", exec.ItemsSucceeded,
		"failed", exec.ItemsFailed,
		"skipped", exec.ItemsSkipped,
		"duration_ms", exec.DurationMs,
	)

	if s.NotifyOnComplete {
		msg := notify.Message{
			Subject: fmt.Sprintf("Schedule %q %s: %d pages generated", s.Name, exec.Status, exec.ItemsSucceeded),
			Text: fmt.Sprintf("Schedule %q (%s) finished with status %s.\n"+
				"Processed %d, generated %d, failed %d, skipped %d existing pages in %dms.\nTriggered by: %s",
				s.Name, s.WebsiteID, exec.Status, exec.ItemsProcessed, exec.ItemsSucceeded,
				exec.ItemsFailed, exec.ItemsSkipped, exec.DurationMs, trigger),
		}
		if s.NotifyEmail != "" {
			msg.To = []string{s.NotifyEmail}
		}
		notify.Deliver(ctx, m.notifier, msg)
	}
	return exec, nil
}

// missingPairs lists the schedule's pages that do not exist yet, capped at
// MaxItemsPerRun. skipped counts the pages that already exist.
func (m *Manager) missingPairs(ctx context.Context, s *models.Schedule) (pairs []batch.Pair, skipped int, err error) {
	snaps, err := m.store.Query(ctx, docstore.Query{Collection: models.CollectionContent}.
		Where("websiteId", docstore.Eq, s.WebsiteID))
	if err != nil {
		return nil, 0, fmt.Errorf("query existing content: %w", err)
	}
	existing := make(map[string]bool, len(snaps))
	for _, snap := range snaps {
		existing[snap.ID] = true
	}

	limit := s.MaxItemsPerRun
	if limit <= 0 {
		limit = DefaultMaxItemsPerRun
	}
	for _, loc := range s.LocationIDs {
		for _, svc := range s.ServiceIDs {
			if existing[models.ContentID(svc, loc)] {
				skipped++
				continue
			}
			if len(pairs) < limit {
				pairs = append(pairs, batch.Pair{LocationID: loc, ServiceID: svc})
			}
		}
	}
	return pairs, skipped, nil
}

func executionStatus(succeeded, failed int) models.ExecutionStatus {
	switch {
	case failed > 0 && succeeded == 0:
		return models.ExecutionFailed
	case failed > 0:
		return models.ExecutionPartial
	}
	return models.ExecutionCompleted
}

// HistoryStats aggregates every execution matching a history query.
type HistoryStats struct {
	TotalExecutions     int   `json:"totalExecutions"`
	CompletedExecutions int   `json:"completedExecutions"`
	TotalItemsGenerated int   `json:"totalItemsGenerated"`
	AverageDurationMs   int64 `json:"averageDuration"`
	// SuccessRate is the percentage of completed executions.
	SuccessRate int `json:"successRate"`
}

// History is a page of executions, most recent first.
type History struct {
	Executions []models.ScheduleExecution `json:"executions"`
	Total      int                        `json:"total"`
	Statistics HistoryStats               `json:"statistics"`
}

// History returns the latest executions of one schedule, or of all
// schedules when scheduleID is empty.
func (m *Manager) History(ctx context.Context, caller *auth.Caller, scheduleID string, limit int) (*History, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	switch {
	case limit < 0:
		return nil, apperr.InvalidArgument("limit must not be negative")
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	var execs []models.ScheduleExecution
	var err error
	if scheduleID != "" {
		execs, err = m.executions(ctx, scheduleID)
	} else {
		execs, err = m.decodeExecutions(ctx, docstore.Query{Collection: models.CollectionScheduleExecutions})
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	slices.SortStableFunc(execs, func(a, b models.ScheduleExecution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	stats := HistoryStats{TotalExecutions: len(execs)}
	var duration int64
	for _, e := range execs {
		if e.Status == models.ExecutionCompleted {
			stats.CompletedExecutions++
		}
		stats.TotalItemsGenerated += e.ItemsSucceeded
		duration += e.DurationMs
	}
	if len(execs) > 0 {
		stats.AverageDurationMs = int64(math.Round(float64(duration) / float64(len(execs))))
		stats.SuccessRate = int(math.Round(float64(stats.CompletedExecutions) / float64(len(execs)) * 100))
	}
	return &History{
		Executions: execs[:min(len(execs), limit)],
		Total:      len(execs),
		Statistics: stats,
	}, nil
}

func (m *Manager) executions(ctx context.Context, scheduleID string) ([]models.ScheduleExecution, error) {
	return m.decodeExecutions(ctx, docstore.Query{Collection: models.CollectionScheduleExecutions}.
		Where("scheduleId", docstore.Eq, scheduleID))
}

func (m *Manager) decodeExecutions(ctx context.Context, q docstore.Query) ([]models.ScheduleExecution, error) {
	snaps, err := m.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query schedule executions: %w", err)
	}
	out := make([]models.ScheduleExecution, 0, len(snaps))
	for _, snap := range snaps {
		var e models.ScheduleExecution
		if err := snap.Decode(&e); err != nil {
			slog.Warn("skipping unreadable schedule execution", "execution_id", snap.ID, "error", err)
			continue
		}
		if e.ID == "" {
			e.ID = snap.ID
		}
		out = append(out, e)
	}
	return out, nil
}

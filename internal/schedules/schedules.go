// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package schedules manages recurring batch generation. A schedule names a
// website, its locations and services, and a cron expression; due schedules
// generate the pages that do not exist yet through the batch orchestrator
// and record each run as an execution.
package schedules

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/batch"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
	"limoseo/internal/notify"
)

// Schedule defaults.
const (
	DefaultTimezone       = "America/Chicago"
	DefaultMaxItemsPerRun = 50
)

// BatchRunner generates a set of pages. *batch.Orchestrator satisfies it.
type BatchRunner interface {
	GenerateBatch(ctx context.Context, caller *auth.Caller, req batch.Request) (*batch.Result, error)
}

// Manager stores schedules and runs them.
type Manager struct {
	store    docstore.Store
	runner   BatchRunner
	notifier notify.Notifier
	now      func() time.Time
}

// NewManager creates a schedule manager. notifier may be nil.
func NewManager(store docstore.Store, runner BatchRunner, notifier notify.Notifier) *Manager {
	return &Manager{store: store, runner: runner, notifier: notifier, now: time.Now}
}

// FrequencyCron returns the cron expression of a preset frequency. Runs
// start at 03:00 in the schedule's timezone.
func FrequencyCron(f models.Frequency) string {
	switch f {
	case models.FrequencyWeekly:
		return "0 3 * * 0"
	case models.FrequencyMonthly:
		return "0 3 1 * *"
	default:
		return "0 3 * * *"
	}
}

// NextRun returns the first time after t at which expr fires in tz.
func NextRun(expr, tz string, t time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, apperr.InvalidArgument(fmt.Sprintf("unknown timezone %q", tz))
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, apperr.InvalidArgument(fmt.Sprintf("invalid cron expression %q: %v", expr, err))
	}
	next := sched.Next(t.In(loc))
	if next.IsZero() {
		return time.Time{}, apperr.InvalidArgument(fmt.Sprintf("cron expression %q never fires", expr))
	}
	return next.UTC(), nil
}

func validFrequency(f models.Frequency) bool {
	switch f {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyCustom:
		return true
	}
	return false
}

// CreateInput describes a new schedule. Frequency custom requires
// CronExpression; other frequencies use their preset unless one is given.
type CreateInput struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	WebsiteID        string           `json:"websiteId"`
	Frequency        models.Frequency `json:"frequency"`
	CronExpression   string           `json:"cronExpression"`
	Timezone         string           `json:"timezone"`
	LocationIDs      []string         `json:"locationIds"`
	ServiceIDs       []string         `json:"serviceIds"`
	MaxItemsPerRun   int              `json:"maxItemsPerRun"`
	NotifyOnComplete *bool            `json:"notifyOnComplete"`
	NotifyEmail      string           `json:"notifyEmail"`
}

// Create stores a new enabled schedule with its first run time.
func (m *Manager) Create(ctx context.Context, caller *auth.Caller, in CreateInput) (*models.Schedule, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	website := strings.TrimSpace(in.WebsiteID)
	locations, services := cleanIDs(in.LocationIDs), cleanIDs(in.ServiceIDs)
	if name == "" || website == "" || len(locations) == 0 || len(services) == 0 {
		return nil, apperr.InvalidArgument("name, websiteId, locationIds and serviceIds are required")
	}
	if !validFrequency(in.Frequency) {
		return nil, apperr.InvalidArgument("frequency must be daily, weekly, monthly or custom")
	}
	expr := strings.TrimSpace(in.CronExpression)
	if expr == "" {
		if in.Frequency == models.FrequencyCustom {
			return nil, apperr.InvalidArgument("custom frequency requires a cronExpression")
		}
		expr = FrequencyCron(in.Frequency)
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	maxItems, err := maxItemsOrDefault(in.MaxItemsPerRun)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	next, err := NextRun(expr, tz, now)
	if err != nil {
		return nil, err
	}
	s := &models.Schedule{
		ID:               uuid.NewString(),
		Name:             name,
		Description:      strings.TrimSpace(in.Description),
		WebsiteID:        website,
		Frequency:        in.Frequency,
		CronExpression:   expr,
		Timezone:         tz,
		Enabled:          true,
		LocationIDs:      locations,
		ServiceIDs:       services,
		MaxItemsPerRun:   maxItems,
		NotifyOnComplete: in.NotifyOnComplete == nil || *in.NotifyOnComplete,
		NotifyEmail:      strings.TrimSpace(in.NotifyEmail),
		CreatedAt:        now,
		CreatedBy:        caller.ID,
		UpdatedAt:        now,
		NextExecutionAt:  &next,
	}
	if err := m.store.Set(ctx, models.CollectionSchedules, s.ID, s); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("store schedule: %w", err))
	}
	slog.Info("schedule created",
		"schedule_id", s.ID,
		"name", s.Name,
		"website_id", s.WebsiteID,
		"cron", s.CronExpression,
		"next_run", next,
	)
	return s, nil
}

// UpdateInput changes a schedule. Nil fields are left as they are.
type UpdateInput struct {
	Name             *string           `json:"name"`
	Description      *string           `json:"description"`
	Frequency        *models.Frequency `json:"frequency"`
	CronExpression   *string           `json:"cronExpression"`
	Timezone         *string           `json:"timezone"`
	Enabled          *bool             `json:"enabled"`
	LocationIDs      []string          `json:"locationIds"`
	ServiceIDs       []string          `json:"serviceIds"`
	MaxItemsPerRun   *int              `json:"maxItemsPerRun"`
	NotifyOnComplete *bool             `json:"notifyOnComplete"`
	NotifyEmail      *string           `json:"notifyEmail"`
}

// Update applies in to a schedule. Changing the frequency, cron expression
// or timezone, or enabling it, recomputes the next run.
func (m *Manager) Update(ctx context.Context, caller *auth.Caller, id string, in UpdateInput) (*models.Schedule, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if s.Name = strings.TrimSpace(*in.Name); s.Name == "" {
			return nil, apperr.InvalidArgument("name must not be empty")
		}
	}
	if in.Description != nil {
		s.Description = strings.TrimSpace(*in.Description)
	}
	if in.LocationIDs != nil {
		if s.LocationIDs = cleanIDs(in.LocationIDs); len(s.LocationIDs) == 0 {
			return nil, apperr.InvalidArgument("locationIds must not be empty")
		}
	}
	if in.ServiceIDs != nil {
		if s.ServiceIDs = cleanIDs(in.ServiceIDs); len(s.ServiceIDs) == 0 {
			return nil, apperr.InvalidArgument("serviceIds must not be empty")
		}
	}
	if in.MaxItemsPerRun != nil {
		if s.MaxItemsPerRun, err = maxItemsOrDefault(*in.MaxItemsPerRun); err != nil {
			return nil, err
		}
	}
	if in.NotifyOnComplete != nil {
		s.NotifyOnComplete = *in.NotifyOnComplete
	}
	if in.NotifyEmail != nil {
		s.NotifyEmail = strings.TrimSpace(*in.NotifyEmail)
	}

	reschedule := false
	if in.Frequency != nil {
		if !validFrequency(*in.Frequency) {
			return nil, apperr.InvalidArgument("frequency must be daily, weekly, monthly or custom")
		}
		s.Frequency = *in.Frequency
		if *in.Frequency != models.FrequencyCustom {
			s.CronExpression = FrequencyCron(*in.Frequency)
		}
		reschedule = true
	}
	if in.CronExpression != nil && strings.TrimSpace(*in.CronExpression) != "" {
		s.CronExpression = strings.TrimSpace(*in.CronExpression)
		reschedule = true
	}
	if in.Timezone != nil && strings.TrimSpace(*in.Timezone) != "" {
		s.Timezone = strings.TrimSpace(*in.Timezone)
		reschedule = true
	}
	if in.Enabled != nil {
		reschedule = reschedule || (*in.Enabled && !s.Enabled)
		s.Enabled = *in.Enabled
	}

	now := m.now().UTC()
	if reschedule {
		next, err := NextRun(s.CronExpression, s.Timezone, now)
		if err != nil {
			return nil, err
		}
		s.NextExecutionAt = &next
	}
	s.UpdatedAt = now

	if err := m.store.Set(ctx, models.CollectionSchedules, s.ID, s); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("update schedule %s: %w", s.ID, err))
	}
	slog.Info("schedule updated", "schedule_id", s.ID, "actor", caller.ID, "rescheduled", reschedule)
	return s, nil
}

// SetEnabled turns a schedule on or off. Enabling it computes the next run
// from now, so missed runs are not caught up.
func (m *Manager) SetEnabled(ctx context.Context, caller *auth.Caller, id string, enabled bool) (*models.Schedule, error) {
	return m.Update(ctx, caller, id, UpdateInput{Enabled: &enabled})
}

// Delete removes a schedule. Its execution history is kept.
func (m *Manager) Delete(ctx context.Context, caller *auth.Caller, id string) (*models.Schedule, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.store.Commit(ctx, []docstore.Op{docstore.DeleteOp(models.CollectionSchedules, s.ID)}); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("delete schedule %s: %w", s.ID, err))
	}
	slog.Info("schedule deleted", "schedule_id", s.ID, "name", s.Name, "actor", caller.ID)
	return s, nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	WebsiteID string
	Enabled   *bool
}

// Summary is a schedule with its run counts.
type Summary struct {
	models.Schedule
	TotalExecutions      int `json:"totalExecutions"`
	SuccessfulExecutions int `json:"successfulExecutions"`
}

// List returns schedules, newest first, with their execution counts.
func (m *Manager) List(ctx context.Context, caller *auth.Caller, f ListFilter) ([]Summary, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	q := docstore.Query{Collection: models.CollectionSchedules}
	if website := strings.TrimSpace(f.WebsiteID); website != "" {
		q = q.Where("websiteId", docstore.Eq, website)
	}
	if f.Enabled != nil {
		q = q.Where("enabled", docstore.Eq, *f.Enabled)
	}
	list, err := m.query(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	slices.SortStableFunc(list, func(a, b models.Schedule) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	out := make([]Summary, 0, len(list))
	for _, s := range list {
		execs, err := m.executions(ctx, s.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		sum := Summary{Schedule: s, TotalExecutions: len(execs)}
		for _, e := range execs {
			if e.Status == models.ExecutionCompleted {
				sum.SuccessfulExecutions++
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func (m *Manager) load(ctx context.Context, id string) (*models.Schedule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.InvalidArgument("scheduleId is required")
	}
	var s models.Schedule
	if err := m.store.Get(ctx, models.CollectionSchedules, id, &s); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("schedule %q not found", id))
		}
		return nil, apperr.Internal(fmt.Errorf("load schedule %s: %w", id, err))
	}
	if s.ID == "" {
		s.ID = id
	}
	return &s, nil
}

func (m *Manager) query(ctx context.Context, q docstore.Query) ([]models.Schedule, error) {
	snaps, err := m.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	out := make([]models.Schedule, 0, len(snaps))
	for _, snap := range snaps {
		var s models.Schedule
		if err := snap.Decode(&s); err != nil {
			slog.Warn("skipping unreadable schedule", "schedule_id", snap.ID, "error", err)
			continue
		}
		if s.ID == "" {
			s.ID = snap.ID
		}
		out = append(out, s)
	}
	return out, nil
}

func maxItemsOrDefault(n int) (int, error) {
	switch {
	case n < 0:
		return 0, apperr.InvalidArgument("maxItemsPerRun must not be negative")
	case n == 0:
		return DefaultMaxItemsPerRun, nil
	}
	return n, nil
}

// cleanIDs trims ids and drops blanks and duplicates, keeping order.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

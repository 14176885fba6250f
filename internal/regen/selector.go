// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package regen

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
	"limoseo/internal/notify"
)

// Service runs the selection side of the pipeline: turning low quality
// scores into prioritized regeneration tasks.
type Service struct {
	store    docstore.Store
	notifier notify.Notifier
	now      func() time.Time
}

// NewService creates a selection service. notifier may be nil.
func NewService(store docstore.Store, notifier notify.Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}

// SelectOptions controls one selection pass. Threshold is used as given;
// zero selects nothing because no score is below it.
type SelectOptions struct {
	Threshold   float64
	MaxPerRun   int
	Reason      string
	RequestedBy string
}

// SelectResult reports one selection pass.
type SelectResult struct {
	// Candidates is the number of scores below the threshold.
	Candidates int
	Queued     int
	// Skipped counts candidates that already had a pending or processing task.
	Skipped int
	// Failed counts selected candidates that could not be queued.
	Failed int
	// QueuedScores holds the score of every queued item.
	QueuedScores []float64
}

// Select queues regeneration tasks for content scoring below the threshold.
// Items that already have a pending or processing task are skipped, so
// running it twice queues nothing new. At most MaxPerRun tasks are written,
// lowest scores first.
func (s *Service) Select(ctx context.Context, opts SelectOptions) (*SelectResult, error) {
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = DefaultDailyMax
	}
	if opts.Reason == "" {
		opts.Reason = fmt.Sprintf("quality score below %.0f", opts.Threshold)
	}

	snaps, err := s.store.Query(ctx, docstore.Query{Collection: models.CollectionQualityScores}.
		Where("overallScore", docstore.Lt, opts.Threshold))
	if err != nil {
		return nil, fmt.Errorf("query quality scores: %w", err)
	}

	scores := make([]models.QualityScoreRecord, 0, len(snaps))
	for _, snap := range snaps {
		var rec models.QualityScoreRecord
		if err := snap.Decode(&rec); err != nil {
			slog.Warn("skipping unreadable quality score", "content_id", snap.ID, "error", err)
			continue
		}
		if rec.ContentID == "" {
			rec.ContentID = snap.ID
		}
		scores = append(scores, rec)
	}
	slices.SortStableFunc(scores, func(a, b models.QualityScoreRecord) int {
		if c := cmp.Compare(a.OverallScore, b.OverallScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ContentID, b.ContentID)
	})

	active, err := activeTasks(ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("query active tasks: %w", err)
	}

	res := &SelectResult{Candidates: len(scores)}
	now := s.now().UTC()

	var groups []docstore.Group
	var groupScores []float64
	var groupIDs []string
	selected := 0
	for _, rec := range scores {
		if active[rec.ContentID] {
			res.Skipped++
			continue
		}
		if selected == opts.MaxPerRun {
			break
		}
		selected++

		var item models.ContentItem
		if err := s.store.Get(ctx, models.CollectionContent, rec.ContentID, &item); err != nil {
			res.Failed++
			if errors.Is(err, docstore.ErrNotFound) {
				slog.Warn("quality score without content item", "content_id", rec.ContentID)
			} else {
				slog.Error("load content for regeneration failed", "content_id", rec.ContentID, "error", err)
			}
			continue
		}
		if item.ID == "" {
			item.ID = rec.ContentID
		}

		task := NewTask(&item, rec.OverallScore, Priority(rec.OverallScore), opts.Reason, "", opts.RequestedBy, now)
		groups = append(groups, QueueGroup(&item, task))
		groupScores = append(groupScores, rec.OverallScore)
		groupIDs = append(groupIDs, rec.ContentID)
	}

	for i, err := range docstore.CommitGroups(ctx, s.store, groups) {
		if err != nil {
			res.Failed++
			slog.Error("queue regeneration failed", "content_id", groupIDs[i], "error", err)
			continue
		}
		res.Queued++
		res.QueuedScores = append(res.QueuedScores, groupScores[i])
	}
	return res, nil
}

// RunOptions controls a logged selection run.
type RunOptions struct {
	Threshold   float64
	MaxPerRun   int
	TriggeredBy string
	Notify      bool
}

// RunResult is the outcome of a logged selection run.
type RunResult struct {
	LogID                   string        `json:"logId"`
	ItemsRegenerated        int           `json:"itemsRegenerated"`
	SuccessCount            int           `json:"successCount"`
	FailureCount            int           `json:"failureCount"`
	Skipped                 int           `json:"skipped"`
	AverageScoreImprovement float64       `json:"averageScoreImprovement"`
	ImprovementEstimated    bool          `json:"improvementEstimated"`
	Duration                time.Duration `json:"-"`
}

// RunSelection selects, records a regeneration log entry and optionally
// notifies operators when anything was queued.
func (s *Service) RunSelection(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := s.now()
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = auth.SchedulerID
	}

	sel, err := s.Select(ctx, SelectOptions{
		Threshold:   opts.Threshold,
		MaxPerRun:   opts.MaxPerRun,
		RequestedBy: opts.TriggeredBy,
	})
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		ItemsRegenerated:        sel.Queued + sel.Failed,
		SuccessCount:            sel.Queued,
		FailureCount:            sel.Failed,
		Skipped:                 sel.Skipped,
		AverageScoreImprovement: averageEstimate(sel.QueuedScores),
		ImprovementEstimated:    true,
		Duration:                s.now().Sub(start),
	}

	entry := &models.RegenerationLogEntry{
		Kind:                    models.RunSelection,
		ExecutedAt:              start.UTC(),
		Threshold:               opts.Threshold,
		TasksProcessed:          res.ItemsRegenerated,
		SuccessCount:            res.SuccessCount,
		FailureCount:            res.FailureCount,
		AverageScoreImprovement: res.AverageScoreImprovement,
		ImprovementEstimated:    true,
		DurationMs:              res.Duration.Milliseconds(),
		TriggeredBy:             opts.TriggeredBy,
	}
	writeLog(ctx, s.store, entry)
	res.LogID = entry.ID

	slog.Info("regeneration selection complete",
		"triggered_by", opts.TriggeredBy,
		"threshold", opts.Threshold,
		"candidates", sel.Candidates,
		"queued", sel.Queued,
		"skipped", sel.Skipped,
		"failed", sel.Failed,
		"estimated_improvement", res.AverageScoreImprovement,
	)

	if opts.Notify && sel.Queued > 0 {
		notify.Deliver(ctx, s.notifier, notify.Message{
			Subject: fmt.Sprintf("Content regeneration: %d items queued", sel.Queued),
			Text: fmt.Sprintf(
				"%d content items scored below %.0f and were queued for regeneration (%d failed, %d already queued).\n"+
					"Estimated average score improvement: %.2f points (estimate, not measured).\nTriggered by: %s",
				sel.Queued, opts.Threshold, sel.Failed, sel.Skipped, res.AverageScoreImprovement, opts.TriggeredBy),
		})
	}
	return res, nil
}

// AutoOptions are the parameters of an admin-triggered run.
type AutoOptions struct {
	Threshold float64
	MaxItems  int
	SendEmail bool
}

// AutoRegenerate is the admin-triggered selection run. It uses the same
// selection logic as the daily trigger with the caller's limits.
func (s *Service) AutoRegenerate(ctx context.Context, caller *auth.Caller, opts AutoOptions) (*RunResult, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, apperr.InvalidArgument("threshold must be between 0 and 100")
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultAutoMaxItems
	}

	res, err := s.RunSelection(ctx, RunOptions{
		Threshold:   opts.Threshold,
		MaxPerRun:   opts.MaxItems,
		TriggeredBy: caller.ID,
		Notify:      opts.SendEmail,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return res, nil
}

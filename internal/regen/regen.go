// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package regen selects low-scoring content for regeneration and drains the
// resulting task queue.
//
// Every multi-document transition (task status plus content item status)
// is committed as one atomic batch, so a reader never sees a task queued
// without its content item marked queued, or the reverse.
package regen

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// Run defaults.
const (
	DefaultThreshold    = 50.0
	DefaultDailyMax     = 50
	DefaultAutoMaxItems = 100
	DefaultQueueMax     = 20
	DefaultStaleAfter   = 2 * time.Hour

	// MaxImprovementEstimate caps the per-item improvement estimate.
	MaxImprovementEstimate = 15.0

	// RecentLogLimit is how many log entries Status returns.
	RecentLogLimit = 10
	// RecentFailureLimit is how many failed tasks Status returns.
	RecentFailureLimit = 10

	// RejectionPriority is the priority of reviewer-requested rewrites.
	RejectionPriority = 10
	// RevisionPriority is the priority of editor revision requests.
	RevisionPriority = 8
)

// Priority maps a quality score to a task priority from 1 (least urgent)
// to 10 (most urgent): max(1, 10 - floor(score/10)).
func Priority(score float64) int {
	p := 10 - int(math.Floor(score/10))
	return max(1, min(10, p))
}

// EstimateImprovement is the expected score gain of regenerating an item:
// min(15, 100 - score). It is a heuristic, never a measurement.
func EstimateImprovement(score float64) float64 {
	return math.Max(0, math.Min(MaxImprovementEstimate, 100-score))
}

// averageEstimate returns the mean estimate over scores, rounded to two
// decimals, or 0 for no scores.
func averageEstimate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += EstimateImprovement(s)
	}
	return math.Round(sum/float64(len(scores))*100) / 100
}

// NewTask returns a pending task for item.
func NewTask(item *models.ContentItem, score float64, priority int, reason, feedback, requestedBy string, now time.Time) models.RegenerationTask {
	return models.RegenerationTask{
		ContentID:    item.ID,
		ServiceID:    item.ServiceID,
		LocationID:   item.LocationID,
		WebsiteID:    item.WebsiteID,
		CurrentScore: score,
		Priority:     priority,
		Status:       models.TaskPending,
		Reason:       reason,
		Feedback:     feedback,
		RequestedBy:  requestedBy,
		QueuedAt:     now,
	}
}

// QueueGroup returns the writes that enqueue task for item: the task
// itself and the item's queued state with its regeneration count bumped.
func QueueGroup(item *models.ContentItem, task models.RegenerationTask) docstore.Group {
	return docstore.Group{
		docstore.SetOp(models.CollectionRegenerationQueue, task.ContentID, task),
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"regenerationStatus":      models.RegenerationQueued,
			"regenerationCount":       item.RegenerationCount + 1,
			"markedForRegenerationAt": task.QueuedAt,
			"regenerationReason":      task.Reason,
		}),
	}
}

// activeTasks returns the content ids that have a pending or processing task.
func activeTasks(ctx context.Context, store docstore.Store) (map[string]bool, error) {
	active := make(map[string]bool)
	for _, status := range []models.TaskStatus{models.TaskPending, models.TaskProcessing} {
		snaps, err := store.Query(ctx, docstore.Query{Collection: models.CollectionRegenerationQueue}.
			Where("status", docstore.Eq, string(status)))
		if err != nil {
			return nil, err
		}
		for _, s := range snaps {
			active[s.ID] = true
		}
	}
	return active, nil
}

// HasActiveTask reports whether contentID has a pending or processing task.
func HasActiveTask(ctx context.Context, store docstore.Store, contentID string) (bool, error) {
	var task models.RegenerationTask
	err := store.Get(ctx, models.CollectionRegenerationQueue, contentID, &task)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return !task.Status.Terminal(), nil
}

// writeLog stores a run log entry. Failures are logged and otherwise ignored.
func writeLog(ctx context.Context, store docstore.Store, entry *models.RegenerationLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := store.Set(context.WithoutCancel(ctx), models.CollectionRegenerationLogs, entry.ID, entry); err != nil {
		slog.Warn("regeneration log write failed", "kind", entry.Kind, "error", err)
	}
}

// historyEntry builds an append-only history record.
func historyEntry(task *models.RegenerationTask, attempt int, status models.TaskStatus, errText string, at time.Time) models.RegenerationHistory {
	return models.RegenerationHistory{
		ID:            uuid.NewString(),
		ContentID:     task.ContentID,
		PreviousScore: task.CurrentScore,
		Reason:        task.Reason,
		AttemptNumber: attempt,
		Status:        status,
		Error:         errText,
		RegeneratedAt: at,
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package regen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"limoseo/internal/auth"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// staleError is recorded on tasks recovered by SweepStale.
const staleError = "stale processing: worker did not finish"

// SweepStale fails tasks that have been processing for longer than
// olderThan, so a crashed run never leaves an item in-progress forever.
// It returns the number of tasks swept.
func (w *Worker) SweepStale(ctx context.Context, olderThan time.Duration, triggeredBy string) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultStaleAfter
	}
	if triggeredBy == "" {
		triggeredBy = auth.SchedulerID
	}
	start := w.now()
	cutoff := start.Add(-olderThan)

	snaps, err := w.store.Query(ctx, docstore.Query{Collection: models.CollectionRegenerationQueue}.
		Where("status", docstore.Eq, string(models.TaskProcessing)))
	if err != nil {
		return 0, fmt.Errorf("query processing tasks: %w", err)
	}

	swept, failed := 0, 0
	for _, snap := range snaps {
		var task models.RegenerationTask
		if err := snap.Decode(&task); err != nil {
			slog.Warn("skipping unreadable regeneration task", "content_id", snap.ID, "error", err)
			continue
		}
		if task.ContentID == "" {
			task.ContentID = snap.ID
		}
		if task.ProcessingStartedAt != nil && task.ProcessingStartedAt.After(cutoff) {
			continue
		}

		var item models.ContentItem
		itemID := task.ContentID
		if err := w.store.Get(ctx, models.CollectionContent, task.ContentID, &item); err != nil {
			if !errors.Is(err, docstore.ErrNotFound) {
				failed++
				slog.Error("load content for sweep failed", "content_id", task.ContentID, "error", err)
				continue
			}
			itemID = ""
		}

		now := w.now().UTC()
		hist := historyEntry(&task, item.RegenerationCount, models.TaskFailed, staleError, now)
		if err := w.store.Commit(ctx, failOps(task.ContentID, itemID, hist, staleError, now)); err != nil {
			failed++
			slog.Error("sweep stale task failed", "content_id", task.ContentID, "error", err)
			continue
		}
		swept++
		slog.Warn("stale regeneration task failed", "content_id", task.ContentID, "started_at", task.ProcessingStartedAt)
	}

	if swept > 0 || failed > 0 {
		writeLog(ctx, w.store, &models.RegenerationLogEntry{
			Kind:           models.RunSweep,
			ExecutedAt:     start.UTC(),
			TasksProcessed: swept + failed,
			SuccessCount:   swept,
			FailureCount:   failed,
			DurationMs:     w.now().Sub(start).Milliseconds(),
			TriggeredBy:    triggeredBy,
		})
	}
	return swept, nil
}

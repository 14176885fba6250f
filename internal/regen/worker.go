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

	"limoseo/internal/auth"
	"limoseo/internal/content"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// Regenerator rewrites the page of one task. *content.Generator satisfies it.
type Regenerator interface {
	Regenerate(ctx context.Context, task *models.RegenerationTask) (*content.Generated, error)
}

// Worker drains the regeneration queue.
type Worker struct {
	store docstore.Store
	regen Regenerator
	now   func() time.Time
}

// NewWorker creates a queue worker.
func NewWorker(store docstore.Store, regen Regenerator) *Worker {
	return &Worker{store: store, regen: regen, now: time.Now}
}

// QueueOptions controls one queue run.
type QueueOptions struct {
	MaxPerRun   int
	TriggeredBy string
}

// QueueResult reports one queue run.
type QueueResult struct {
	LogID     string `json:"logId"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	// Remaining is the number of pending tasks left for later runs.
	Remaining int `json:"remaining"`
}

// pendingTasks returns every pending task, most urgent first.
func pendingTasks(ctx context.Context, store docstore.Store) ([]models.RegenerationTask, error) {
	snaps, err := store.Query(ctx, docstore.Query{Collection: models.CollectionRegenerationQueue}.
		Where("status", docstore.Eq, string(models.TaskPending)))
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	tasks := make([]models.RegenerationTask, 0, len(snaps))
	for _, snap := range snaps {
		var t models.RegenerationTask
		if err := snap.Decode(&t); err != nil {
			slog.Warn("skipping unreadable regeneration task", "content_id", snap.ID, "error", err)
			continue
		}
		if t.ContentID == "" {
			t.ContentID = snap.ID
		}
		tasks = append(tasks, t)
	}
	slices.SortStableFunc(tasks, func(a, b models.RegenerationTask) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ContentID, b.ContentID)
	})
	return tasks, nil
}

// ProcessQueue regenerates at most MaxPerRun pending tasks in priority
// order. A failed task stays failed; nothing is retried automatically.
func (w *Worker) ProcessQueue(ctx context.Context, opts QueueOptions) (*QueueResult, error) {
	start := w.now()
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = DefaultQueueMax
	}
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = auth.SchedulerID
	}

	tasks, err := pendingTasks(ctx, w.store)
	if err != nil {
		return nil, err
	}
	batch := tasks[:min(len(tasks), opts.MaxPerRun)]

	res := &QueueResult{}
	processed := 0
	for i := range batch {
		if ctx.Err() != nil {
			slog.Warn("regeneration queue run interrupted", "processed", processed, "error", ctx.Err())
			break
		}
		processed++
		if w.processTask(ctx, &batch[i]) {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	// Tasks whose start transition failed are still pending.
	if left, err := pendingTasks(context.WithoutCancel(ctx), w.store); err == nil {
		res.Remaining = len(left)
	} else {
		res.Remaining = len(tasks) - processed
	}

	entry := &models.RegenerationLogEntry{
		Kind:           models.RunQueue,
		ExecutedAt:     start.UTC(),
		TasksProcessed: processed,
		SuccessCount:   res.Succeeded,
		FailureCount:   res.Failed,
		DurationMs:     w.now().Sub(start).Milliseconds(),
		TriggeredBy:    opts.TriggeredBy,
	}
	writeLog(ctx, w.store, entry)
	res.LogID = entry.ID

	slog.Info("regeneration queue run complete",
		"triggered_by", opts.TriggeredBy,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"remaining", res.Remaining,
	)
	return res, nil
}

// processTask runs one task through processing to completed or failed and
// reports whether it completed.
func (w *Worker) processTask(ctx context.Context, task *models.RegenerationTask) bool {
	log := slog.With("content_id", task.ContentID, "priority", task.Priority)

	var item models.ContentItem
	if err := w.store.Get(ctx, models.CollectionContent, task.ContentID, &item); err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Error("load content for regeneration failed", "error", err)
			return false
		}
		// Without an item there is nothing to rewrite.
		log.Warn("regeneration task without content item")
		now := w.now().UTC()
		task.Status = models.TaskFailed
		task.FailedAt = &now
		task.Error = "content item not found"
		if err := w.store.Commit(ctx, []docstore.Op{
			docstore.SetOp(models.CollectionRegenerationQueue, task.ContentID, *task),
		}); err != nil {
			log.Error("mark orphan task failed", "error", err)
		}
		return false
	}
	if item.ID == "" {
		item.ID = task.ContentID
	}

	started := w.now().UTC()
	task.Status = models.TaskProcessing
	task.ProcessingStartedAt = &started
	err := w.store.Commit(ctx, []docstore.Op{
		docstore.UpdateOp(models.CollectionRegenerationQueue, task.ContentID, map[string]any{
			"status":              models.TaskProcessing,
			"processingStartedAt": started,
		}),
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"regenerationStatus":        models.RegenerationInProgress,
			"lastRegenerationStartedAt": started,
		}),
	})
	if err != nil {
		log.Error("start regeneration failed", "error", err)
		return false
	}

	gen, genErr := w.regen.Regenerate(ctx, task)
	if genErr == nil {
		err := w.complete(ctx, task, &item, gen)
		if err == nil {
			log.Info("content regenerated", "attempt", item.RegenerationCount)
			return true
		}
		genErr = fmt.Errorf("store regenerated content: %w", err)
	}

	log.Error("content regeneration failed", "error", genErr)
	if err := w.fail(ctx, task, &item, genErr.Error()); err != nil {
		// The task stays processing until the stale sweep picks it up.
		log.Error("mark regeneration failed", "error", err)
	}
	return false
}

func (w *Worker) complete(ctx context.Context, task *models.RegenerationTask, item *models.ContentItem, gen *content.Generated) error {
	now := w.now().UTC()
	item.Title = gen.Title
	item.MetaDescription = gen.MetaDescription
	item.Content = gen.Content
	item.Keywords = gen.Keywords
	item.InternalLinks = gen.InternalLinks
	item.Schema = gen.Schema

	hist := historyEntry(task, item.RegenerationCount, models.TaskCompleted, "", now)
	entry := content.NewApprovalEntry(item, now)

	return w.store.Commit(context.WithoutCancel(ctx), []docstore.Op{
		docstore.UpdateOp(models.CollectionRegenerationQueue, task.ContentID, map[string]any{
			"status":      models.TaskCompleted,
			"completedAt": now,
		}),
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"title":              gen.Title,
			"metaDescription":    gen.MetaDescription,
			"content":            gen.Content,
			"keywords":           gen.Keywords,
			"internalLinks":      gen.InternalLinks,
			"schema":             gen.Schema,
			"regenerationStatus": models.RegenerationCompleted,
			"regeneratedAt":      now,
		}),
		docstore.SetOp(models.CollectionRegenerationHistory, hist.ID, hist),
		docstore.SetOp(models.CollectionApprovalQueue, entry.ID, entry),
	})
}

func (w *Worker) fail(ctx context.Context, task *models.RegenerationTask, item *models.ContentItem, errText string) error {
	now := w.now().UTC()
	hist := historyEntry(task, item.RegenerationCount, models.TaskFailed, errText, now)
	return w.store.Commit(context.WithoutCancel(ctx), failOps(task.ContentID, item.ID, hist, errText, now))
}

// failOps returns the writes that move a task and its item to failed.
// itemID may be empty when the item no longer exists.
func failOps(contentID, itemID string, hist models.RegenerationHistory, errText string, at time.Time) []docstore.Op {
	ops := []docstore.Op{
		docstore.UpdateOp(models.CollectionRegenerationQueue, contentID, map[string]any{
			"status":   models.TaskFailed,
			"failedAt": at,
			"error":    errText,
		}),
		docstore.SetOp(models.CollectionRegenerationHistory, hist.ID, hist),
	}
	if itemID != "" {
		ops = append(ops, docstore.UpdateOp(models.CollectionContent, itemID, map[string]any{
			"regenerationStatus": models.RegenerationFailed,
		}))
	}
	return ops
}

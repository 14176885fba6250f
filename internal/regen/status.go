// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package regen

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// QueueCounts is the size of the regeneration queue per state. Total counts
// only tasks still to be done.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// FailedTask is a failed regeneration with its error text.
type FailedTask struct {
	ContentID string     `json:"contentId"`
	Error     string     `json:"error"`
	FailedAt  *time.Time `json:"failedAt,omitempty"`
}

// StatusReport is the queue overview shown to editors.
type StatusReport struct {
	Queue       QueueCounts                   `json:"queue"`
	FailedTasks []FailedTask                  `json:"failedTasks"`
	RecentLogs  []models.RegenerationLogEntry `json:"recentLogs"`
}

// Status returns queue counts and the most recent run logs. Any
// authenticated caller may read it.
func (s *Service) Status(ctx context.Context, caller *auth.Caller) (*StatusReport, error) {
	if err := auth.RequireCaller(caller); err != nil {
		return nil, err
	}
	report, err := ReadStatus(ctx, s.store)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return report, nil
}

// ReadStatus builds a StatusReport without an authorization check.
func ReadStatus(ctx context.Context, store docstore.Store) (*StatusReport, error) {
	query := func(status models.TaskStatus) ([]docstore.Snapshot, error) {
		snaps, err := store.Query(ctx, docstore.Query{Collection: models.CollectionRegenerationQueue}.
			Where("status", docstore.Eq, string(status)))
		if err != nil {
			return nil, fmt.Errorf("count %s tasks: %w", status, err)
		}
		return snaps, nil
	}

	var q QueueCounts
	pending, err := query(models.TaskPending)
	if err != nil {
		return nil, err
	}
	processing, err := query(models.TaskProcessing)
	if err != nil {
		return nil, err
	}
	failed, err := query(models.TaskFailed)
	if err != nil {
		return nil, err
	}
	q.Pending, q.Processing, q.Failed = len(pending), len(processing), len(failed)
	q.Total = q.Pending + q.Processing

	failures := make([]FailedTask, 0, len(failed))
	for _, snap := range failed {
		var task models.RegenerationTask
		if err := snap.Decode(&task); err != nil {
			slog.Warn("skipping unreadable regeneration task", "content_id", snap.ID, "error", err)
			continue
		}
		if task.ContentID == "" {
			task.ContentID = snap.ID
		}
		failures = append(failures, FailedTask{ContentID: task.ContentID, Error: task.Error, FailedAt: task.FailedAt})
	}
	slices.SortStableFunc(failures, func(a, b FailedTask) int {
		if c := failedTime(b).Compare(failedTime(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ContentID, b.ContentID)
	})

	snaps, err := store.Query(ctx, docstore.Query{Collection: models.CollectionRegenerationLogs})
	if err != nil {
		return nil, fmt.Errorf("query regeneration logs: %w", err)
	}
	logs := make([]models.RegenerationLogEntry, 0, len(snaps))
	for _, snap := range snaps {
		var e models.RegenerationLogEntry
		if err := snap.Decode(&e); err != nil {
			slog.Warn("skipping unreadable regeneration log", "log_id", snap.ID, "error", err)
			continue
		}
		if e.ID == "" {
			e.ID = snap.ID
		}
		logs = append(logs, e)
	}
	slices.SortStableFunc(logs, func(a, b models.RegenerationLogEntry) int {
		if c := b.ExecutedAt.Compare(a.ExecutedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return &StatusReport{
		Queue:       q,
		FailedTasks: failures[:min(len(failures), RecentFailureLimit)],
		RecentLogs:  logs[:min(len(logs), RecentLogLimit)],
	}, nil
}

func failedTime(f FailedTask) time.Time {
	if f.FailedAt == nil {
		return time.Time{}
	}
	return *f.FailedAt
}

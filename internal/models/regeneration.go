// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// QualityScoreRecord is written by the external scorer, keyed by content id.
// ShouldRegenerate is advisory; selection re-checks the threshold itself.
type QualityScoreRecord struct {
	ContentID        string             `json:"contentId"`
	ServiceID        string             `json:"serviceId"`
	LocationID       string             `json:"locationId"`
	WebsiteID        string             `json:"websiteId"`
	OverallScore     float64            `json:"overallScore"`
	Scores           map[string]float64 `json:"scores,omitempty"`
	Recommendations  []string           `json:"recommendations,omitempty"`
	ShouldRegenerate bool               `json:"shouldRegenerate"`
	ScoredAt         time.Time          `json:"scoredAt"`
}

// TaskStatus is the lifecycle state of a regeneration task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// RegenerationTask asks the queue worker to rewrite one content item. It is
// keyed by content id, so each item has at most one task document.
type RegenerationTask struct {
	ContentID           string     `json:"contentId"`
	ServiceID           string     `json:"serviceId"`
	LocationID          string     `json:"locationId"`
	WebsiteID           string     `json:"websiteId"`
	CurrentScore        float64    `json:"currentScore"`
	Priority            int        `json:"priority"`
	Status              TaskStatus `json:"status"`
	Reason              string     `json:"reason"`
	Feedback            string     `json:"feedback,omitempty"`
	RequestedBy         string     `json:"requestedBy,omitempty"`
	QueuedAt            time.Time  `json:"queuedAt"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	FailedAt            *time.Time `json:"failedAt,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// RegenerationHistory is an append-only record of one regeneration attempt.
type RegenerationHistory struct {
	ID            string     `json:"id"`
	ContentID     string     `json:"contentId"`
	PreviousScore float64    `json:"previousScore"`
	Reason        string     `json:"reason"`
	AttemptNumber int        `json:"attemptNumber"`
	Status        TaskStatus `json:"status"`
	Error         string     `json:"error,omitempty"`
	RegeneratedAt time.Time  `json:"regeneratedAt"`
}

// RunKind identifies which trigger produced a log entry.
type RunKind string

const (
	RunSelection RunKind = "selection"
	RunQueue     RunKind = "queue"
	RunSweep     RunKind = "sweep"
)

// RegenerationLogEntry summarizes one scheduled or admin-triggered run.
//
// AverageScoreImprovement is an estimate computed at queue time, not a
// measured delta; ImprovementEstimated is always true for selection runs.
type RegenerationLogEntry struct {
	ID                      string    `json:"id"`
	Kind                    RunKind   `json:"kind"`
	ExecutedAt              time.Time `json:"executedAt"`
	Threshold               float64   `json:"threshold,omitempty"`
	TasksProcessed          int       `json:"tasksProcessed"`
	SuccessCount            int       `json:"successCount"`
	FailureCount            int       `json:"failureCount"`
	AverageScoreImprovement float64   `json:"averageScoreImprovement"`
	ImprovementEstimated    bool      `json:"improvementEstimated"`
	DurationMs              int64     `json:"durationMs"`
	TriggeredBy             string    `json:"triggeredBy"`
}

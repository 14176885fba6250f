// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// JobStatus is the state of a batch generation job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in-progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// BatchJob tracks a multi-item generation run. CompletedItems only grows.
type BatchJob struct {
	ID             string     `json:"id"`
	Websites       []string   `json:"websites"`
	Locations      []string   `json:"locations"`
	Services       []string   `json:"services"`
	TotalItems     int        `json:"totalItems"`
	CompletedItems int        `json:"completedItems"`
	FailedItems    int        `json:"failedItems"`
	Status         JobStatus  `json:"status"`
	TriggeredBy    string     `json:"triggeredBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Document collections.
const (
	CollectionServices            = "services"
	CollectionLocations           = "locations"
	CollectionContent             = "service_content"
	CollectionQualityScores       = "content_quality_scores"
	CollectionRegenerationQueue   = "regeneration_queue"
	CollectionRegenerationHistory = "content_regeneration_history"
	CollectionRegenerationLogs    = "regeneration_logs"
	CollectionApprovalQueue       = "content_approval_queue"
	CollectionApprovals           = "content_approvals"
	CollectionPageMappings        = "page_mappings"
	CollectionBatchJobs           = "batch_jobs"
)

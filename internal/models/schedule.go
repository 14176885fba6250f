// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Schedule document collections.
const (
	CollectionSchedules          = "content_schedules"
	CollectionScheduleExecutions = "schedule_executions"
)

// Frequency is how often a schedule generates content.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Schedule is a recurring batch generation for one website.
type Schedule struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	WebsiteID        string     `json:"websiteId"`
	Frequency        Frequency  `json:"frequency"`
	CronExpression   string     `json:"cronExpression"`
	Timezone         string     `json:"timezone"`
	Enabled          bool       `json:"enabled"`
	LocationIDs      []string   `json:"locationIds"`
	ServiceIDs       []string   `json:"serviceIds"`
	MaxItemsPerRun   int        `json:"maxItemsPerRun"`
	NotifyOnComplete bool       `json:"notifyOnComplete"`
	NotifyEmail      string     `json:"notifyEmail,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CreatedBy        string     `json:"createdBy"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastExecutedAt   *time.Time `json:"lastExecutedAt,omitempty"`
	NextExecutionAt  *time.Time `json:"nextExecutionAt,omitempty"`
}

// ExecutionStatus is the state of one schedule run.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionPartial   ExecutionStatus = "partial"
	ExecutionFailed    ExecutionStatus = "failed"
)

// How a schedule run was started.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ScheduleExecution records one run of a schedule.
type ScheduleExecution struct {
	ID                string          `json:"id"`
	ScheduleID        string          `json:"scheduleId"`
	ScheduleName      string          `json:"scheduleName"`
	Status            ExecutionStatus `json:"status"`
	StartedAt         time.Time       `json:"startedAt"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	DurationMs        int64           `json:"duration"`
	ItemsProcessed    int             `json:"itemsProcessed"`
	ItemsSucceeded    int             `json:"itemsSucceeded"`
	ItemsFailed       int             `json:"itemsFailed"`
	ItemsSkipped      int             `json:"itemsSkipped"`
	ErrorMessage      string          `json:"errorMessage,omitempty"`
	TriggeredBy       string          `json:"triggeredBy"`
	TriggeredByUserID string          `json:"triggeredByUserId,omitempty"`
	BatchJobID        string          `json:"batchJobId,omitempty"`
}

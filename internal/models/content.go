// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"
)

// ApprovalStatus is the human review state of a content item.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// RegenerationStatus tracks where a content item sits in the regeneration
// pipeline. It is independent of ApprovalStatus.
type RegenerationStatus string

const (
	RegenerationNone       RegenerationStatus = "none"
	RegenerationQueued     RegenerationStatus = "queued"
	RegenerationInProgress RegenerationStatus = "in-progress"
	RegenerationCompleted  RegenerationStatus = "completed"
	RegenerationFailed     RegenerationStatus = "failed"
)

// ContentTypeServiceLocation is the approval queue content type for
// location×service pages.
const ContentTypeServiceLocation = "service-location"

// ContentID returns the deterministic document id of the content item for a
// service/location pair.
func ContentID(serviceID, locationID string) string {
	return serviceID + "-" + locationID
}

// ContentItem is the generated page copy for one service in one location.
// Items are never hard-deleted; they move through approval and regeneration
// states instead.
type ContentItem struct {
	ID                 string             `json:"id"`
	ServiceID          string             `json:"serviceId"`
	LocationID         string             `json:"locationId"`
	WebsiteID          string             `json:"websiteId"`
	Title              string             `json:"title"`
	MetaDescription    string             `json:"metaDescription"`
	Content            string             `json:"content"`
	Keywords           []string           `json:"keywords"`
	InternalLinks      []string           `json:"internalLinks"`
	Schema             map[string]any     `json:"schema"`
	ApprovalStatus     ApprovalStatus     `json:"approvalStatus"`
	RegenerationStatus RegenerationStatus `json:"regenerationStatus"`
	RegenerationCount  int                `json:"regenerationCount"`
	GeneratedAt        time.Time          `json:"generatedAt"`

	ApprovedAt        *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy        string     `json:"approvedBy,omitempty"`
	RejectedAt        *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy        string     `json:"rejectedBy,omitempty"`
	RejectionFeedback string     `json:"rejectionFeedback,omitempty"`

	MarkedForRegenerationAt   *time.Time `json:"markedForRegenerationAt,omitempty"`
	LastRegenerationStartedAt *time.Time `json:"lastRegenerationStartedAt,omitempty"`
	RegeneratedAt             *time.Time `json:"regeneratedAt,omitempty"`
	RegenerationReason        string     `json:"regenerationReason,omitempty"`

	RevisionNotes       string     `json:"revisionNotes,omitempty"`
	SpecificChanges     []string   `json:"specificChanges,omitempty"`
	RevisionRequestedAt *time.Time `json:"revisionRequestedAt,omitempty"`
	RevisionRequestedBy string     `json:"revisionRequestedBy,omitempty"`
}

// IsApproved reports whether a reviewer has approved the item.
func (c *ContentItem) IsApproved() bool {
	return c.ApprovalStatus == ApprovalApproved
}

// ApprovalQueueEntry is a pointer for reviewers to a freshly generated or
// regenerated content item.
type ApprovalQueueEntry struct {
	ID          string         `json:"id"`
	ContentID   string         `json:"contentId"`
	ContentType string         `json:"contentType"`
	Status      ApprovalStatus `json:"status"`
	ServiceID   string         `json:"serviceId"`
	LocationID  string         `json:"locationId"`
	WebsiteID   string         `json:"websiteId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	ResolvedAt  *time.Time     `json:"resolvedAt,omitempty"`
}

// PageMapping records whether the page for a content item may be published.
type PageMapping struct {
	ContentID       string    `json:"contentId"`
	Status          string    `json:"status"`
	ReadyForPublish bool      `json:"readyForPublish"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ApprovalAction names an entry in the approval audit trail.
type ApprovalAction string

const (
	ActionApproved      ApprovalAction = "approved"
	ActionRejected      ApprovalAction = "rejected"
	ActionBatchApproved ApprovalAction = "batch_approved"
	ActionRevision      ApprovalAction = "revision_requested"
)

// ApprovalRecord is one reviewer decision, kept for auditing.
type ApprovalRecord struct {
	ID                    string         `json:"id"`
	ContentID             string         `json:"contentId"`
	ServiceID             string         `json:"serviceId"`
	LocationID            string         `json:"locationId"`
	WebsiteID             string         `json:"websiteId"`
	Action                ApprovalAction `json:"action"`
	Feedback              string         `json:"feedback,omitempty"`
	RequestedRegeneration bool           `json:"requestedRegeneration"`
	Actor                 string         `json:"actor"`
	At                    time.Time      `json:"at"`
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package approval records reviewer decisions on generated content and
// marks approved pages ready for publishing.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
	"limoseo/internal/regen"
)

// MaxBatchApprove is the largest number of items BatchApprove accepts.
const MaxBatchApprove = 100

// PageStatusApproved is the page mapping status of an approved item.
const PageStatusApproved = "approved"

// Workflow applies approval decisions.
type Workflow struct {
	store docstore.Store
	now   func() time.Time
}

// NewWorkflow creates an approval workflow.
func NewWorkflow(store docstore.Store) *Workflow {
	return &Workflow{store: store, now: time.Now}
}

// Decision is the outcome of approving or rejecting one item.
type Decision struct {
	ContentID string                `json:"contentId"`
	Status    models.ApprovalStatus `json:"status"`
	// RegenerationQueued is set when a rejection queued a rewrite.
	RegenerationQueued bool `json:"regenerationQueued,omitempty"`
}

// RejectRequest rejects an item, optionally asking for a rewrite that
// takes the feedback into account.
type RejectRequest struct {
	ContentID           string `json:"contentId"`
	Feedback            string `json:"feedback"`
	RequestRegeneration bool   `json:"requestRegeneration"`
}

// SetApproval approves or rejects an item. Approval marks its page ready
// for publishing; rejection stores feedback verbatim. The item's
// regeneration status is never touched.
func (w *Workflow) SetApproval(ctx context.Context, caller *auth.Caller, contentID string, approved bool, feedback string) (*Decision, error) {
	if approved {
		return w.approve(ctx, caller, contentID, models.ActionApproved)
	}
	return w.Reject(ctx, caller, RejectRequest{ContentID: contentID, Feedback: feedback})
}

func (w *Workflow) approve(ctx context.Context, caller *auth.Caller, contentID string, action models.ApprovalAction) (*Decision, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	item, err := w.load(ctx, contentID)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	ops := []docstore.Op{
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"approvalStatus":    models.ApprovalApproved,
			"approvedAt":        now,
			"approvedBy":        caller.ID,
			"rejectedAt":        nil,
			"rejectedBy":        "",
			"rejectionFeedback": "",
		}),
		docstore.MergeOp(models.CollectionPageMappings, item.ID, map[string]any{
			"contentId":       item.ID,
			"status":          PageStatusApproved,
			"readyForPublish": true,
			"updatedAt":       now,
		}),
		auditOp(item, action, "", false, caller.ID, now),
	}
	resolved, err := w.resolveOps(ctx, item.ID, models.ApprovalApproved, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ops = append(ops, resolved...)

	if err := w.store.Commit(ctx, ops); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("approve %s: %w", item.ID, err))
	}
	slog.Info("content approved", "content_id", item.ID, "actor", caller.ID, "action", action)
	return &Decision{ContentID: item.ID, Status: models.ApprovalApproved}, nil
}

// Reject rejects an item. With RequestRegeneration a top priority task
// carrying the feedback is queued in the same batch, unless the item
// already has a pending or processing task.
func (w *Workflow) Reject(ctx context.Context, caller *auth.Caller, req RejectRequest) (*Decision, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	item, err := w.load(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}

	now := w.now().UTC()
	ops := []docstore.Op{
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"approvalStatus":    models.ApprovalRejected,
			"rejectedAt":        now,
			"rejectedBy":        caller.ID,
			"rejectionFeedback": req.Feedback,
			"approvedAt":        nil,
			"approvedBy":        "",
		}),
	}
	if item.IsApproved() {
		ops = append(ops, docstore.MergeOp(models.CollectionPageMappings, item.ID, map[string]any{
			"contentId":       item.ID,
			"status":          string(models.ApprovalRejected),
			"readyForPublish": false,
			"updatedAt":       now,
		}))
	}

	queued := false
	if req.RequestRegeneration {
		active, err := regen.HasActiveTask(ctx, w.store, item.ID)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("check regeneration queue: %w", err))
		}
		if !active {
			reason := "rejected by reviewer"
			if fb := strings.TrimSpace(req.Feedback); fb != "" {
				reason = "Rejected: " + fb
			}
			task := regen.NewTask(item, w.currentScore(ctx, item.ID), regen.RejectionPriority, reason, req.Feedback, caller.ID, now)
			ops = append(ops, regen.QueueGroup(item, task)...)
			queued = true
		}
	}

	ops = append(ops, auditOp(item, models.ActionRejected, req.Feedback, req.RequestRegeneration, caller.ID, now))
	resolved, err := w.resolveOps(ctx, item.ID, models.ApprovalRejected, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ops = append(ops, resolved...)

	if err := w.store.Commit(ctx, ops); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("reject %s: %w", item.ID, err))
	}
	slog.Info("content rejected",
		"content_id", item.ID,
		"actor", caller.ID,
		"regeneration_queued", queued,
	)
	return &Decision{ContentID: item.ID, Status: models.ApprovalRejected, RegenerationQueued: queued}, nil
}

// RevisionRequest asks for a rewrite of an item with reviewer notes.
type RevisionRequest struct {
	ContentID       string   `json:"contentId"`
	Notes           string   `json:"revisionNotes"`
	SpecificChanges []string `json:"specificChanges"`
}

// RequestRevision records revision notes on an item and queues a rewrite
// carrying them. Editors may request revisions. The approval status is
// left as it is; the rewrite enters the approval queue when it completes.
func (w *Workflow) RequestRevision(ctx context.Context, caller *auth.Caller, req RevisionRequest) (*Decision, error) {
	if err := auth.RequireEditor(caller); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return nil, apperr.InvalidArgument("revisionNotes is required")
	}
	item, err := w.load(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	changes := make([]string, 0, len(req.SpecificChanges))
	for _, c := range req.SpecificChanges {
		if c = strings.TrimSpace(c); c != "" {
			changes = append(changes, c)
		}
	}

	now := w.now().UTC()
	ops := []docstore.Op{
		docstore.UpdateOp(models.CollectionContent, item.ID, map[string]any{
			"revisionNotes":       notes,
			"specificChanges":     changes,
			"revisionRequestedAt": now,
			"revisionRequestedBy": caller.ID,
		}),
	}

	active, err := regen.HasActiveTask(ctx, w.store, item.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check regeneration queue: %w", err))
	}
	if !active {
		task := regen.NewTask(item, w.currentScore(ctx, item.ID), regen.RevisionPriority,
			"Revision requested", revisionFeedback(notes, changes), caller.ID, now)
		ops = append(ops, regen.QueueGroup(item, task)...)
	}
	ops = append(ops, auditOp(item, models.ActionRevision, notes, !active, caller.ID, now))

	if err := w.store.Commit(ctx, ops); err != nil {
		return nil, apperr.PersistenceFailure(fmt.Errorf("request revision %s: %w", item.ID, err))
	}
	slog.Info("content revision requested",
		"content_id", item.ID,
		"actor", caller.ID,
		"changes", len(changes),
		"regeneration_queued", !active,
	)
	return &Decision{ContentID: item.ID, Status: item.ApprovalStatus, RegenerationQueued: !active}, nil
}

// revisionFeedback folds the notes and requested changes into the text the
// rewrite prompt passes to the model.
func revisionFeedback(notes string, changes []string) string {
	if len(changes) == 0 {
		return notes
	}
	var b strings.Builder
	b.WriteString(notes)
	b.WriteString("\nSpecific changes:")
	for _, c := range changes {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String()
}

// BatchResult reports a batch approval.
type BatchResult struct {
	Approved []string          `json:"approved"`
	Failed   map[string]string `json:"failed"`
}

// BatchApprove approves each item on its own; one failure never blocks
// the rest.
func (w *Workflow) BatchApprove(ctx context.Context, caller *auth.Caller, contentIDs []string) (*BatchResult, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if len(contentIDs) == 0 {
		return nil, apperr.InvalidArgument("contentIds is required")
	}
	if len(contentIDs) > MaxBatchApprove {
		return nil, apperr.InvalidArgument(fmt.Sprintf("at most %d items per batch", MaxBatchApprove))
	}

	res := &BatchResult{Approved: []string{}, Failed: map[string]string{}}
	for _, id := range contentIDs {
		if _, err := w.approve(ctx, caller, id, models.ActionBatchApproved); err != nil {
			res.Failed[id] = err.Error()
			continue
		}
		res.Approved = append(res.Approved, strings.TrimSpace(id))
	}
	slog.Info("batch approval complete", "actor", caller.ID, "approved", len(res.Approved), "failed", len(res.Failed))
	return res, nil
}

func (w *Workflow) load(ctx context.Context, contentID string) (*models.ContentItem, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, apperr.InvalidArgument("contentId is required")
	}
	var item models.ContentItem
	if err := w.store.Get(ctx, models.CollectionContent, contentID, &item); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("content %q not found", contentID))
		}
		return nil, apperr.Internal(fmt.Errorf("load content %s: %w", contentID, err))
	}
	if item.ID == "" {
		item.ID = contentID
	}
	return &item, nil
}

// currentScore returns the latest quality score of an item, or 0 when it
// has not been scored.
func (w *Workflow) currentScore(ctx context.Context, contentID string) float64 {
	var rec models.QualityScoreRecord
	if err := w.store.Get(ctx, models.CollectionQualityScores, contentID, &rec); err != nil {
		return 0
	}
	return rec.OverallScore
}

// resolveOps closes the item's open approval queue entries.
func (w *Workflow) resolveOps(ctx context.Context, contentID string, status models.ApprovalStatus, at time.Time) ([]docstore.Op, error) {
	snaps, err := w.store.Query(ctx, docstore.Query{Collection: models.CollectionApprovalQueue}.
		Where("contentId", docstore.Eq, contentID).
		Where("status", docstore.Eq, string(models.ApprovalPending)))
	if err != nil {
		return nil, fmt.Errorf("query approval queue: %w", err)
	}
	ops := make([]docstore.Op, 0, len(snaps))
	for _, s := range snaps {
		ops = append(ops, docstore.UpdateOp(models.CollectionApprovalQueue, s.ID, map[string]any{
			"status":     status,
			"resolvedAt": at,
		}))
	}
	return ops, nil
}

func auditOp(item *models.ContentItem, action models.ApprovalAction, feedback string, regenerate bool, actor string, at time.Time) docstore.Op {
	rec := models.ApprovalRecord{
		ID:                    uuid.NewString(),
		ContentID:             item.ID,
		ServiceID:             item.ServiceID,
		LocationID:            item.LocationID,
		WebsiteID:             item.WebsiteID,
		Action:                action,
		Feedback:              feedback,
		RequestedRegeneration: regenerate,
		Actor:                 actor,
		At:                    at,
	}
	return docstore.SetOp(models.CollectionApprovals, rec.ID, rec)
}

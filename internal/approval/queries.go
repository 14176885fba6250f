// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package approval

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
	"limoseo/internal/docstore"
	"limoseo/internal/models"
)

// Pending list limits.
const (
	DefaultPendingLimit = 50
	MaxPendingLimit     = 200
)

// QualityIndicator buckets a quality score for reviewers.
func QualityIndicator(score float64) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 80:
		return "good"
	case score >= 70:
		return "acceptable"
	default:
		return "needs_review"
	}
}

// PendingItem is an approval queue entry with its current score.
type PendingItem struct {
	models.ApprovalQueueEntry
	Title            string   `json:"title"`
	QualityScore     *float64 `json:"qualityScore,omitempty"`
	QualityIndicator string   `json:"qualityIndicator,omitempty"`
}

// PendingList is one page of pending approvals.
type PendingList struct {
	Items []PendingItem `json:"content"`
	Total int           `json:"total"`
	Limit int           `json:"limit"`
}

// ListPending returns open approval queue entries, newest first.
func (w *Workflow) ListPending(ctx context.Context, caller *auth.Caller, websiteID string, limit int) (*PendingList, error) {
	if err := auth.RequireCaller(caller); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	limit = min(limit, MaxPendingLimit)

	q := docstore.Query{Collection: models.CollectionApprovalQueue}.
		Where("status", docstore.Eq, string(models.ApprovalPending))
	if websiteID = strings.TrimSpace(websiteID); websiteID != "" {
		q = q.Where("websiteId", docstore.Eq, websiteID)
	}
	snaps, err := w.store.Query(ctx, q)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query approval queue: %w", err))
	}

	entries := make([]models.ApprovalQueueEntry, 0, len(snaps))
	for _, s := range snaps {
		var e models.ApprovalQueueEntry
		if err := s.Decode(&e); err != nil {
			return nil, apperr.Internal(err)
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b models.ApprovalQueueEntry) int {
		if c := b.GeneratedAt.Compare(a.GeneratedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ContentID, b.ContentID)
	})

	list := &PendingList{Items: []PendingItem{}, Total: len(entries), Limit: limit}
	for _, e := range entries[:min(len(entries), limit)] {
		item := PendingItem{ApprovalQueueEntry: e}
		var c models.ContentItem
		if err := w.store.Get(ctx, models.CollectionContent, e.ContentID, &c); err == nil {
			item.Title = c.Title
		}
		var rec models.QualityScoreRecord
		if err := w.store.Get(ctx, models.CollectionQualityScores, e.ContentID, &rec); err == nil {
			score := rec.OverallScore
			item.QualityScore = &score
			item.QualityIndicator = QualityIndicator(score)
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}

// Stats summarizes the review pipeline.
type Stats struct {
	Total          int            `json:"totalContent"`
	Approval       map[string]int `json:"approvalCounts"`
	Regeneration   map[string]int `json:"regenerationCounts"`
	Quality        map[string]int `json:"qualityDistribution"`
	PendingReview  int            `json:"pendingApproval"`
	ReadyToPublish int            `json:"readyToPublish"`
}

// Statistics counts content by approval and regeneration state.
func (w *Workflow) Statistics(ctx context.Context, caller *auth.Caller, websiteID string) (*Stats, error) {
	if err := auth.RequireCaller(caller); err != nil {
		return nil, err
	}

	q := docstore.Query{Collection: models.CollectionContent}
	if websiteID = strings.TrimSpace(websiteID); websiteID != "" {
		q = q.Where("websiteId", docstore.Eq, websiteID)
	}
	snaps, err := w.store.Query(ctx, q)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query content: %w", err))
	}

	mappings, err := w.store.Query(ctx, docstore.Query{Collection: models.CollectionPageMappings}.
		Where("readyForPublish", docstore.Eq, true))
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("query page mappings: %w", err))
	}
	ready := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		ready[m.ID] = true
	}

	st := &Stats{
		Approval: map[string]int{
			string(models.ApprovalPending):  0,
			string(models.ApprovalApproved): 0,
			string(models.ApprovalRejected): 0,
		},
		Regeneration: map[string]int{},
		Quality:      map[string]int{"excellent": 0, "good": 0, "acceptable": 0, "needs_review": 0},
	}
	for _, s := range snaps {
		var c models.ContentItem
		if err := s.Decode(&c); err != nil {
			return nil, apperr.Internal(err)
		}
		st.Total++
		approval := c.ApprovalStatus
		if approval == "" {
			approval = models.ApprovalPending
		}
		st.Approval[string(approval)]++
		rs := c.RegenerationStatus
		if rs == "" {
			rs = models.RegenerationNone
		}
		st.Regeneration[string(rs)]++
		if ready[s.ID] {
			st.ReadyToPublish++
		}

		var rec models.QualityScoreRecord
		if err := w.store.Get(ctx, models.CollectionQualityScores, s.ID, &rec); err == nil {
			st.Quality[QualityIndicator(rec.OverallScore)]++
		}
	}
	st.PendingReview = st.Approval[string(models.ApprovalPending)]
	return st, nil
}

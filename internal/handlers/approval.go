// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"limoseo/internal/apperr"
	"limoseo/internal/approval"
)

type approvalRequest struct {
	Approved            *bool  `json:"approved"`
	Feedback            string `json:"feedback"`
	RequestRegeneration bool   `json:"requestRegeneration"`
}

type decisionResponse struct {
	Success bool `json:"success"`
	*approval.Decision
}

// SetApproval handles POST /api/content/{contentID}/approval.
func (a *API) SetApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Approved == nil {
		writeError(w, r, apperr.InvalidArgument("approved is required"))
		return
	}

	id := chi.URLParam(r, "contentID")
	var (
		d   *approval.Decision
		err error
	)
	if !*req.Approved && req.RequestRegeneration {
		d, err = a.approvals.Reject(r.Context(), callerOf(r), approval.RejectRequest{
			ContentID:           id,
			Feedback:            req.Feedback,
			RequestRegeneration: true,
		})
	} else {
		d, err = a.approvals.SetApproval(r.Context(), callerOf(r), id, *req.Approved, req.Feedback)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d.RegenerationQueued && a.cache != nil {
		a.cache.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, decisionResponse{Success: true, Decision: d})
}

type revisionRequest struct {
	RevisionNotes   string   `json:"revisionNotes"`
	SpecificChanges []string `json:"specificChanges"`
}

// RequestRevision handles POST /api/content/{contentID}/revision.
func (a *API) RequestRevision(w http.ResponseWriter, r *http.Request) {
	var req revisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := a.approvals.RequestRevision(r.Context(), callerOf(r), approval.RevisionRequest{
		ContentID:       chi.URLParam(r, "contentID"),
		Notes:           req.RevisionNotes,
		SpecificChanges: req.SpecificChanges,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d.RegenerationQueued && a.cache != nil {
		a.cache.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, decisionResponse{Success: true, Decision: d})
}

type batchApproveRequest struct {
	ContentIDs []string `json:"contentIds"`
}

type batchApproveResponse struct {
	Success bool `json:"success"`
	*approval.BatchResult
}

// BatchApprove handles POST /api/content/approvals/batch.
func (a *API) BatchApprove(w http.ResponseWriter, r *http.Request) {
	var req batchApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.approvals.BatchApprove(r.Context(), callerOf(r), req.ContentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchApproveResponse{Success: true, BatchResult: res})
}

type pendingResponse struct {
	Success bool `json:"success"`
	*approval.PendingList
}

// PendingApprovals handles GET /api/content/approvals/pending?websiteId=&limit=.
func (a *API) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, apperr.InvalidArgument("limit must be a positive integer"))
			return
		}
		limit = n
	}
	list, err := a.approvals.ListPending(r.Context(), callerOf(r), r.URL.Query().Get("websiteId"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingResponse{Success: true, PendingList: list})
}

type statsResponse struct {
	Success bool `json:"success"`
	*approval.Stats
}

// ApprovalStats handles GET /api/content/approvals/stats?websiteId=.
func (a *API) ApprovalStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.approvals.Statistics(r.Context(), callerOf(r), r.URL.Query().Get("websiteId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: st})
}

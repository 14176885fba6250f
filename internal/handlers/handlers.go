// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers exposes the pipeline operations as JSON endpoints. The
// handlers only decode requests, resolve the caller from the context and
// encode results; all rules live in the operation packages.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"limoseo/internal/apperr"
	"limoseo/internal/approval"
	"limoseo/internal/auth"
	"limoseo/internal/batch"
	"limoseo/internal/content"
	"limoseo/internal/models"
	"limoseo/internal/regen"
	"limoseo/internal/schedules"
)

// maxBodyBytes bounds request bodies. The largest legitimate body is a
// batch approval of 100 ids.
const maxBodyBytes = 64 << 10

// ContentGenerator generates one service/location page.
type ContentGenerator interface {
	Generate(ctx context.Context, caller *auth.Caller, req content.Request) (*content.Result, error)
}

// BatchGenerator fans generation out over many pairs.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, caller *auth.Caller, req batch.Request) (*batch.Result, error)
}

// Approvals records reviewer decisions.
type Approvals interface {
	Reject(ctx context.Context, caller *auth.Caller, req approval.RejectRequest) (*approval.Decision, error)
	SetApproval(ctx context.Context, caller *auth.Caller, contentID string, approved bool, feedback string) (*approval.Decision, error)
	RequestRevision(ctx context.Context, caller *auth.Caller, req approval.RevisionRequest) (*approval.Decision, error)
	BatchApprove(ctx context.Context, caller *auth.Caller, contentIDs []string) (*approval.BatchResult, error)
	ListPending(ctx context.Context, caller *auth.Caller, websiteID string, limit int) (*approval.PendingList, error)
	Statistics(ctx context.Context, caller *auth.Caller, websiteID string) (*approval.Stats, error)
}

// Regeneration runs and reports quality-gated regeneration.
type Regeneration interface {
	AutoRegenerate(ctx context.Context, caller *auth.Caller, opts regen.AutoOptions) (*regen.RunResult, error)
	Status(ctx context.Context, caller *auth.Caller) (*regen.StatusReport, error)
}

// Schedules manages recurring batch generation.
type Schedules interface {
	List(ctx context.Context, caller *auth.Caller, f schedules.ListFilter) ([]schedules.Summary, error)
	Create(ctx context.Context, caller *auth.Caller, in schedules.CreateInput) (*models.Schedule, error)
	Update(ctx context.Context, caller *auth.Caller, id string, in schedules.UpdateInput) (*models.Schedule, error)
	SetEnabled(ctx context.Context, caller *auth.Caller, id string, enabled bool) (*models.Schedule, error)
	Delete(ctx context.Context, caller *auth.Caller, id string) (*models.Schedule, error)
	Execute(ctx context.Context, caller *auth.Caller, id string) (*models.ScheduleExecution, error)
	History(ctx context.Context, caller *auth.Caller, scheduleID string, limit int) (*schedules.History, error)
}

// StatusCache holds the encoded regeneration status between runs.
type StatusCache interface {
	Get(ctx context.Context) ([]byte, bool)
	Set(ctx context.Context, body []byte)
	Invalidate(ctx context.Context)
}

// API groups the JSON handlers.
type API struct {
	content   ContentGenerator
	batch     BatchGenerator
	approvals Approvals
	regen     Regeneration
	schedules Schedules
	cache     StatusCache
}

// NewAPI creates the handlers. cache may be nil.
func NewAPI(gen ContentGenerator, batch BatchGenerator, approvals Approvals, regen Regeneration, schedules Schedules, cache StatusCache) *API {
	return &API{content: gen, batch: batch, approvals: approvals, regen: regen, schedules: schedules, cache: cache}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

// errorResponse is the body of every failed call.
type errorResponse struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// writeError maps an operation error onto its status and body. Internal
// causes are logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError || code == apperr.CodeGenerationFailed {
		slog.Error("request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	if code == apperr.CodeInternal {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst as is.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.InvalidArgument("invalid JSON body: " + err.Error())
	}
	return nil
}

func callerOf(r *http.Request) *auth.Caller {
	return auth.FromContext(r.Context())
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"limoseo/internal/apperr"
	"limoseo/internal/models"
	"limoseo/internal/schedules"
)

type scheduleResponse struct {
	Success  bool             `json:"success"`
	Schedule *models.Schedule `json:"schedule"`
}

type scheduleListResponse struct {
	Success   bool                `json:"success"`
	Schedules []schedules.Summary `json:"schedules"`
	Count     int                 `json:"count"`
}

// ListSchedules handles GET /api/schedules?websiteId=&enabled=.
func (a *API) ListSchedules(w http.ResponseWriter, r *http.Request) {
	f := schedules.ListFilter{WebsiteID: r.URL.Query().Get("websiteId")}
	if s := r.URL.Query().Get("enabled"); s != "" {
		enabled, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, r, apperr.InvalidArgument("enabled must be true or false"))
			return
		}
		f.Enabled = &enabled
	}
	list, err := a.schedules.List(r.Context(), callerOf(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleListResponse{Success: true, Schedules: list, Count: len(list)})
}

// CreateSchedule handles POST /api/schedules.
func (a *API) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in schedules.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := a.schedules.Create(r.Context(), callerOf(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, scheduleResponse{Success: true, Schedule: s})
}

// UpdateSchedule handles PATCH /api/schedules/{scheduleID}.
func (a *API) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var in schedules.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := a.schedules.Update(r.Context(), callerOf(r), chi.URLParam(r, "scheduleID"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Success: true, Schedule: s})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// ToggleSchedule handles POST /api/schedules/{scheduleID}/toggle.
func (a *API) ToggleSchedule(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, r, apperr.InvalidArgument("enabled is required"))
		return
	}
	s, err := a.schedules.SetEnabled(r.Context(), callerOf(r), chi.URLParam(r, "scheduleID"), *req.Enabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Success: true, Schedule: s})
}

// DeleteSchedule handles DELETE /api/schedules/{scheduleID}.
func (a *API) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	s, err := a.schedules.Delete(r.Context(), callerOf(r), chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Success: true, Schedule: s})
}

type executionResponse struct {
	Success   bool                      `json:"success"`
	Execution *models.ScheduleExecution `json:"execution"`
}

// ExecuteSchedule handles POST /api/schedules/{scheduleID}/execute. The
// response is sent once the run has finished.
func (a *API) ExecuteSchedule(w http.ResponseWriter, r *http.Request) {
	exec, err := a.schedules.Execute(r.Context(), callerOf(r), chi.URLParam(r, "scheduleID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, executionResponse{Success: true, Execution: exec})
}

type historyResponse struct {
	Success bool `json:"success"`
	*schedules.History
}

// ScheduleHistory handles GET /api/schedules/history?scheduleId=&limit=.
func (a *API) ScheduleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, apperr.InvalidArgument("limit must be a positive integer"))
			return
		}
		limit = n
	}
	h, err := a.schedules.History(r.Context(), callerOf(r), r.URL.Query().Get("scheduleId"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: h})
}

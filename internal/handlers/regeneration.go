// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"limoseo/internal/auth"
	"limoseo/internal/regen"
)

type autoRequest struct {
	Threshold *float64 `json:"threshold"`
	MaxItems  *int     `json:"maxItems"`
	SendEmail *bool    `json:"sendEmail"`
}

type autoResponse struct {
	Success bool `json:"success"`
	*regen.RunResult
	Duration string `json:"duration"`
}

// AutoRegenerate handles POST /api/regeneration/auto. Missing fields take
// the defaults threshold=50, maxItems=100 and sendEmail=true.
func (a *API) AutoRegenerate(w http.ResponseWriter, r *http.Request) {
	var req autoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	opts := regen.AutoOptions{
		Threshold: regen.DefaultThreshold,
		MaxItems:  regen.DefaultAutoMaxItems,
		SendEmail: true,
	}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.MaxItems != nil {
		opts.MaxItems = *req.MaxItems
	}
	if req.SendEmail != nil {
		opts.SendEmail = *req.SendEmail
	}

	res, err := a.regen.AutoRegenerate(r.Context(), callerOf(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.cache != nil {
		a.cache.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, autoResponse{
		Success:   true,
		RunResult: res,
		Duration:  res.Duration.Round(time.Millisecond).String(),
	})
}

type statusResponse struct {
	Success bool `json:"success"`
	*regen.StatusReport
}

// RegenerationStatus handles GET /api/regeneration/status. The encoded
// report is served from the status cache when one is configured.
func (a *API) RegenerationStatus(w http.ResponseWriter, r *http.Request) {
	// The cache is shared by all callers, so authenticate before reading it.
	if err := auth.RequireCaller(callerOf(r)); err != nil {
		writeError(w, r, err)
		return
	}
	if a.cache != nil {
		if body, ok := a.cache.Get(r.Context()); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.Write(body)
			return
		}
	}

	report, err := a.regen.Status(r.Context(), callerOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := json.Marshal(statusResponse{Success: true, StatusReport: report})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a.cache != nil {
		a.cache.Set(r.Context(), body)
		slog.Debug("regeneration status cached", "bytes", len(body))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

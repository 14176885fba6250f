// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"limoseo/internal/batch"
	"limoseo/internal/content"
)

type preview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type generateResponse struct {
	Success   bool    `json:"success"`
	ContentID string  `json:"contentId"`
	Message   string  `json:"message"`
	Preview   preview `json:"preview"`
}

// Generate handles POST /api/content/generate.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	var req content.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.content.Generate(r.Context(), callerOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Success:   true,
		ContentID: res.ContentID,
		Message:   res.Message,
		Preview:   preview{Title: res.Title, Description: res.MetaDescription},
	})
}

type batchResponse struct {
	Success bool `json:"success"`
	*batch.Result
}

// GenerateBatch handles POST /api/content/batch. It returns once every
// pair has been attempted.
func (a *API) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req batch.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.batch.GenerateBatch(r.Context(), callerOf(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Result: res})
}

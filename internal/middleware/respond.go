// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package middleware provides the HTTP middleware of the pipeline API.
package middleware

import (
	"encoding/json"
	"net/http"

	"limoseo/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// writeError writes a JSON error with the status mapped from code.
func writeError(w http.ResponseWriter, code apperr.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(code))
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: msg})
}

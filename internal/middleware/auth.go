// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"

	"limoseo/internal/apperr"
	"limoseo/internal/auth"
)

// Authenticate resolves the caller of each request and stores it in the
// request context. Requests without credentials pass through anonymously;
// the operations decide whether they need a caller. Credentials that are
// present but invalid are rejected with 401.
func Authenticate(a auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := a.Authenticate(r)
			if err != nil {
				slog.Warn("authentication failed", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
				writeError(w, apperr.CodeUnauthenticated, "invalid credentials")
				return
			}
			if caller != nil {
				slog.Debug("request authenticated", "caller", caller.ID, "role", caller.Role)
				r = r.WithContext(auth.WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCaller rejects anonymous requests with 401.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()) == nil {
			writeError(w, apperr.CodeUnauthenticated, "must be logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

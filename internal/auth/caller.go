// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth resolves who is calling a pipeline operation. Identity is
// issued elsewhere (the admin console's sessions, or hashed API tokens); this
// package only answers "who is it" and "are they an admin".
package auth

import (
	"context"
	"net/http"

	"limoseo/internal/apperr"
)

// Roles recognized by the pipeline.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
	RoleEditor     = "editor"
	RoleSystem     = "system"
)

// SchedulerID is the caller id recorded for scheduled runs.
const SchedulerID = "scheduler"

// Caller is an authenticated principal.
type Caller struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsAdmin reports whether the caller may run admin operations.
func (c *Caller) IsAdmin() bool {
	if c == nil {
		return false
	}
	switch c.Role {
	case RoleAdmin, RoleSuperAdmin, RoleSystem:
		return true
	}
	return false
}

// IsEditor reports whether the caller may review and revise content.
func (c *Caller) IsEditor() bool {
	return c != nil && (c.Role == RoleEditor || c.IsAdmin())
}

// System returns the caller used by scheduled triggers.
func System() *Caller {
	return &Caller{ID: SchedulerID, Role: RoleSystem}
}

// RequireAdmin returns nil for admins, Unauthenticated for a nil caller and
// Unauthorized otherwise.
func RequireAdmin(c *Caller) error {
	if c == nil {
		return apperr.Unauthenticated()
	}
	if !c.IsAdmin() {
		return apperr.Unauthorized()
	}
	return nil
}

// RequireEditor returns nil for editors and admins, Unauthenticated for a
// nil caller and Unauthorized otherwise.
func RequireEditor(c *Caller) error {
	if c == nil {
		return apperr.Unauthenticated()
	}
	if !c.IsEditor() {
		return apperr.Unauthorized()
	}
	return nil
}

// RequireCaller returns Unauthenticated for a nil caller.
func RequireCaller(c *Caller) error {
	if c == nil {
		return apperr.Unauthenticated()
	}
	return nil
}

type contextKey string

const callerKey contextKey = "caller"

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// FromContext returns the caller stored in ctx, or nil.
func FromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey).(*Caller)
	return c
}

// Authenticator resolves the caller of an HTTP request. It returns nil, nil
// when the request carries no credentials it recognizes.
type Authenticator interface {
	Authenticate(r *http.Request) (*Caller, error)
}

// Chain tries each authenticator in order and returns the first caller found.
type Chain []Authenticator

// Authenticate implements Authenticator.
func (ch Chain) Authenticate(r *http.Request) (*Caller, error) {
	for _, a := range ch {
		if a == nil {
			continue
		}
		c, err := a.Authenticate(r)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error kinds surfaced by pipeline operations and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error kind.
type Code string

const (
	CodeUnauthenticated   Code = "unauthenticated"
	CodePermissionDenied  Code = "permission-denied"
	CodeNotFound          Code = "not-found"
	CodeInvalidArgument   Code = "invalid-argument"
	CodeGenerationFailed  Code = "generation-failed"
	CodePersistenceFailed Code = "persistence-failed"
	CodeInternal          Code = "internal"
	// CodeResourceExhausted is only produced by the HTTP rate limiter.
	CodeResourceExhausted Code = "resource-exhausted"
)

// Error carries a Code, a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates an Error around a cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Unauthenticated is returned when no caller identity is present.
func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "must be logged in")
}

// Unauthorized is returned when the caller is known but not an admin.
func Unauthorized() *Error {
	return New(CodePermissionDenied, "admin only")
}

// NotFound is returned when a referenced document does not exist.
func NotFound(msg string) *Error {
	return New(CodeNotFound, msg)
}

// InvalidArgument is returned for missing or malformed request fields.
func InvalidArgument(msg string) *Error {
	return New(CodeInvalidArgument, msg)
}

// GenerationFailure wraps a text generation error or unusable output.
func GenerationFailure(err error) *Error {
	return Wrap(CodeGenerationFailed, "content generation failed", err)
}

// PersistenceFailure wraps a document store write error.
func PersistenceFailure(err error) *Error {
	return Wrap(CodePersistenceFailed, "persisting content failed", err)
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return Wrap(CodeInternal, "internal error", err)
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a Code onto an HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeGenerationFailed:
		return http.StatusBadGateway
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionCookie is the admin console's session cookie.
	SessionCookie = "lc_session"

	// SessionTTL is how long a session lives in Valkey.
	SessionTTL = 24 * time.Hour

	sessionPrefix = "session:"
)

// SessionData is the payload the admin console stores per session.
type SessionData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionAuthenticator reads admin console sessions from Valkey.
type SessionAuthenticator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionAuthenticator creates a session reader backed by client.
func NewSessionAuthenticator(client *redis.Client) *SessionAuthenticator {
	return &SessionAuthenticator{client: client, ttl: SessionTTL}
}

// Authenticate implements Authenticator.
func (s *SessionAuthenticator) Authenticate(r *http.Request) (*Caller, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	data, err := s.Get(r.Context(), cookie.Value)
	if err != nil || data == nil {
		return nil, err
	}
	return &Caller{ID: data.UserID, Role: data.Role}, nil
}

// Get loads a session by id. Returns nil, nil if it expired or never existed.
func (s *SessionAuthenticator) Get(ctx context.Context, id string) (*SessionData, error) {
	payload, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Create stores a session and returns its id.
func (s *SessionAuthenticator) Create(ctx context.Context, data *SessionData) (string, error) {
	id, err := NewSecret()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, sessionPrefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}
	return id, nil
}

// Destroy removes a session.
func (s *SessionAuthenticator) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

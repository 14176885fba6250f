// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// tokenEntry is one configured API token.
type tokenEntry struct {
	role string
	hash []byte
}

// TokenAuthenticator accepts "Authorization: Bearer <id>.<secret>" headers.
// Only bcrypt hashes of the secrets are held in memory.
type TokenAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]tokenEntry
}

// NewTokenAuthenticator parses entries of the form "id:role:bcrypthash".
func NewTokenAuthenticator(entries []string) (*TokenAuthenticator, error) {
	a := &TokenAuthenticator{tokens: make(map[string]tokenEntry)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.SplitN(e, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("api token entry %q: want id:role:hash", e)
		}
		if _, err := bcrypt.Cost([]byte(parts[2])); err != nil {
			return nil, fmt.Errorf("api token %s: invalid bcrypt hash: %w", parts[0], err)
		}
		a.tokens[parts[0]] = tokenEntry{role: parts[1], hash: []byte(parts[2])}
	}
	return a, nil
}

// Add registers a token id with a plaintext secret, hashing it first.
func (a *TokenAuthenticator) Add(id, role, secret string) error {
	hash, err := HashSecret(secret)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[id] = tokenEntry{role: role, hash: []byte(hash)}
	return nil
}

// Len returns the number of configured tokens.
func (a *TokenAuthenticator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tokens)
}

// Authenticate implements Authenticator. A bearer token that does not
// match is treated as absent credentials.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (*Caller, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return nil, nil
	}
	id, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || id == "" || secret == "" {
		return nil, nil
	}

	a.mu.RLock()
	entry, found := a.tokens[id]
	a.mu.RUnlock()
	if !found {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword(entry.hash, []byte(secret)) != nil {
		return nil, nil
	}
	return &Caller{ID: id, Role: entry.role}, nil
}

// HashSecret returns the bcrypt hash of an API token secret.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// NewSecret returns a random 32-byte hex secret.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

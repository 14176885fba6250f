// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai is the text generation client. Each LLM vendor (Gemini,
// OpenAI, Claude, Mistral) implements Provider, and the Registry routes
// calls to the active one with per-call defaults and a request timeout.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Generation defaults.
const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 2048
	DefaultTopK            = 40
	DefaultTopP            = 0.95
	DefaultTimeout         = 60 * time.Second
)

// Complexity hints which model tier a call needs.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Image is an inline image attached to a vision prompt.
type Image struct {
	MimeType string
	Data     []byte
}

// Request is a single generation call.
type Request struct {
	System string
	Prompt string

	// Model overrides the provider's model. When empty, Complexity picks
	// between the provider's default and pro models.
	Model      string
	Complexity Complexity

	Temperature     float64
	MaxOutputTokens int

	// Image, when set, makes this a vision call.
	Image *Image
}

// Provider defines the interface that all AI providers must implement.
type Provider interface {
	// Generate returns the model's text response.
	Generate(ctx context.Context, req Request) (string, error)

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey   string
	Model    string
	ProModel string
	BaseURL  string
}

// model resolves the model for a request.
func (c ProviderConfig) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	if req.Complexity == ComplexityHigh && c.ProModel != "" {
		return c.ProModel
	}
	return c.Model
}

// Registry manages available AI providers and selects the active one.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
	timeout   time.Duration
}

// NewRegistry creates a registry and initialises providers for every config
// that has a non-empty API key. Providers without keys are skipped.
func NewRegistry(active string, configs map[string]ProviderConfig, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
		timeout:   timeout,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		}
	}

	return r
}

// Generate applies defaults and the request timeout, then calls the active
// provider. A timeout surfaces as an ordinary error.
func (r *Registry) Generate(ctx context.Context, req Request) (string, error) {
	p, err := r.Active()
	if err != nil {
		return "", err
	}

	if req.Temperature <= 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = DefaultMaxOutputTokens
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := p.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", p.Name(), err)
	}

	slog.Debug("ai generation complete",
		"provider", p.Name(),
		"vision", req.Image != nil,
		"prompt_tokens_est", EstimateTokens(req.System+req.Prompt),
		"response_tokens_est", EstimateTokens(text),
		"duration", time.Since(start).String(),
	)
	return text, nil
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return p, nil
}

// SetActive switches the active provider at runtime.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	r.active = name
	return nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available returns the sorted names of all configured providers.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a provider, e.g. a test double.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

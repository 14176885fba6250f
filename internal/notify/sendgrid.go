// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SendGridConfig configures the SendGrid mail sender.
type SendGridConfig struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	To         []string
	Timeout    time.Duration
	MaxRetries int

	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// SendGrid sends notifications through the SendGrid v3 mail API.
type SendGrid struct {
	cfg        SendGridConfig
	httpClient *http.Client
}

// NewSendGrid validates cfg and creates a sender.
func NewSendGrid(cfg SendGridConfig) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid: missing API key")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: missing from address")
	}
	var to []string
	for _, addr := range cfg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("sendgrid: no recipients")
	}
	cfg.To = to

	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	return &SendGrid{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

// --- SendGrid mail send wire types ---

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

// HTTPError is a non-2xx answer from SendGrid.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

// retryable reports whether another attempt may succeed.
func retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Send implements Notifier.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	subject := strings.TrimSpace(msg.Subject)
	text := strings.TrimSpace(msg.Text)
	if subject == "" || text == "" {
		return fmt.Errorf("sendgrid: subject and text are required")
	}

	recipients := s.cfg.To
	if len(msg.To) > 0 {
		recipients = msg.To
	}
	to := make([]emailAddress, 0, len(recipients))
	for _, addr := range recipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, emailAddress{Email: addr})
		}
	}
	if len(to) == 0 {
		return fmt.Errorf("sendgrid: no recipients")
	}
	wire := mailSendRequest{
		Personalizations: []personalization{{To: to}},
		From:             emailAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: text}},
	}

	backoff := s.cfg.Backoff
	for attempt := 0; ; attempt++ {
		err := s.sendOnce(ctx, wire)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt >= s.cfg.MaxRetries {
			return err
		}

		slog.Warn("sendgrid request retrying",
			"attempt", attempt+1,
			"max_retries", s.cfg.MaxRetries,
			"sleep", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (s *SendGrid) sendOnce(ctx context.Context, wire mailSendRequest) error {
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("sendgrid marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid http: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

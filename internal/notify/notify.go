// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify delivers operator notifications about pipeline runs.
// Delivery is fire-and-forget: failures are logged and never fail a run.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// deliverTimeout bounds one notification attempt including retries.
const deliverTimeout = 30 * time.Second

// Message is a plain-text notification. To overrides the configured
// recipients when set.
type Message struct {
	Subject string
	Text    string
	To      []string
}

// Notifier sends a message to the configured operators.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Deliver sends msg through n and logs any failure. A nil Notifier is a no-op.
func Deliver(ctx context.Context, n Notifier, msg Message) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	if err := n.Send(ctx, msg); err != nil {
		slog.Warn("notification failed", "subject", msg.Subject, "error", err)
		return
	}
	slog.Debug("notification sent", "subject", msg.Subject)
}

// LogNotifier writes notifications to the log. It is used when no mail
// provider is configured.
type LogNotifier struct{}

// Send implements Notifier.
func (LogNotifier) Send(_ context.Context, msg Message) error {
	slog.Info("notification", "subject", msg.Subject, "to", msg.To, "text", msg.Text)
	return nil
}

// Package telegram is the operator surface: purge commands arrive as bot commands
// and purge results are posted back to the same chat.
package telegram

import (
	"context"

	"CFPurge/notify"
)

type Button struct {
	Text         string
	CallbackData string
}

// Sink posts notifications to the chat, prefixed by severity.
type Sink struct {
	Sender Sender
}

func (s Sink) Notify(ctx context.Context, message string, severity notify.Severity) error {
	if s.Sender == nil {
		return nil
	}
	return s.Sender.Send(ctx, FormatNotification(message, severity))
}

func FormatNotification(message string, severity notify.Severity) string {
	if severity == notify.SeverityError {
		return "⚠️ " + message
	}
	return "✅ " + message
}

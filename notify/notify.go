// Package notify delivers purge status messages to whoever operates the site.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Severity tags a message for display.
type Severity string

const (
	SeverityGood  Severity = "good"
	SeverityError Severity = "error"
)

// Sink receives the final status message of an operation.
type Sink interface {
	Notify(ctx context.Context, message string, severity Severity) error
}

// Noop drops every message.
type Noop struct{}

func (Noop) Notify(context.Context, string, Severity) error { return nil }

// LogSink writes messages to the structured log.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Notify(_ context.Context, message string, severity Severity) error {
	if s.Logger == nil {
		return nil
	}
	if severity == SeverityError {
		s.Logger.Warn("Purge notification", zap.String("severity", string(severity)), zap.String("message", message))
		return nil
	}
	s.Logger.Info("Purge notification", zap.String("severity", string(severity)), zap.String("message", message))
	return nil
}

// Multi fans a message out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, message string, severity Severity) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, message, severity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

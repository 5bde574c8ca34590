// Package app ties the operator surface, the startup check and the metrics listener together.
package app

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"CFPurge/telegram"
)

type App struct {
	Sender         telegram.Sender
	Checker        *ReadinessChecker
	Notifier       *NotifierService
	HandleMessage  telegram.MessageFunc
	HandleCallback telegram.CallbackFunc
	MetricsServer  *fasthttp.Server
	Logger         *zap.Logger
}

// Run reports readiness, then serves Telegram updates until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.Sender == nil || a.Logger == nil {
		return ErrMissingDependencies
	}

	if a.Checker != nil {
		readiness, err := a.Checker.Check(ctx)
		if err != nil {
			return err
		}
		if a.Notifier != nil {
			if err := a.Notifier.NotifyReadiness(ctx, readiness); err != nil {
				a.Logger.Warn("Failed to send readiness notification", zap.Error(err))
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Sender.StartListener(ctx, a.HandleCallback, a.HandleMessage)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(); err != nil {
			a.Logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
	a.Logger.Info("Stopped")
	return runErr
}

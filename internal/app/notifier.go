package app

import (
	"context"
	"fmt"

	"CFPurge/telegram"
)

// NotifierService posts the startup status to the operator chat,
// with quick-action buttons once the site is ready.
type NotifierService struct {
	Sender telegram.Sender
}

func (n *NotifierService) NotifyReadiness(ctx context.Context, r Readiness) error {
	if n.Sender == nil {
		return ErrMissingDependencies
	}

	if !r.Ready() {
		reason := "unknown"
		if r.Err != nil {
			reason = r.Err.Error()
		}
		domain := r.Zone.Domain
		if domain == "" {
			domain = "(not resolved)"
		}
		return n.Sender.Send(ctx, fmt.Sprintf("CloudFlare purge is NOT ready\nDomain: %s\nReason: %s", domain, reason))
	}

	msg := fmt.Sprintf("CloudFlare purge is ready\nDomain: %s\nZone ID: %s", r.Zone.Domain, r.Zone.ZoneID)
	buttons := [][]telegram.Button{
		{
			{Text: "Purge CSS", CallbackData: "purge|css"},
			{Text: "Purge JS", CallbackData: "purge|js"},
			{Text: "Purge images", CallbackData: "purge|images"},
		},
		{
			{Text: "Purge everything", CallbackData: telegram.CallbackPurgeAllConfirm},
		},
	}
	return n.Sender.SendWithButtons(ctx, msg, buttons)
}

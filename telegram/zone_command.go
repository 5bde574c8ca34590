package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (h *CommandHandler) handleZoneCommand(ctx context.Context, args string) {
	if h.Zones == nil {
		h.sendText(ctx, "Zone lookup is not configured.")
		return
	}

	if strings.EqualFold(strings.TrimSpace(args), "forget") {
		if err := h.Zones.InvalidateCurrent(ctx); err != nil {
			h.sendText(ctx, fmt.Sprintf("Failed to forget the cached zone: %v", err))
			return
		}
		h.sendText(ctx, "Cached zone id dropped; the next purge looks it up again.")
		return
	}

	res, err := h.Zones.ResolveCurrent(ctx)
	if err != nil {
		h.sendText(ctx, fmt.Sprintf("Zone lookup failed: %v", err))
		return
	}

	source := "CloudFlare API"
	if res.Cached {
		source = "cache"
	}
	h.sendText(ctx, fmt.Sprintf("Domain: %s\nZone ID: %s\nReady: %v\nSource: %s\nFetched: %s",
		res.Domain, res.ZoneID, res.Ready, source, res.FetchedAt.Format(time.RFC3339)))
}

package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"CFPurge/purge"
)

// Callback data of the purge-everything confirmation buttons.
const (
	CallbackPurgeAllConfirm = "purgeall|yes"
	CallbackPurgeAllCancel  = "purgeall|no"
)

func (h *CommandHandler) handlePurgeCommand(ctx context.Context, args string, operator *tgbotapi.User) {
	items := splitList(args)
	if len(items) == 0 {
		h.sendText(ctx, "Usage: /purge <url|path>[, <url|path>...]")
		return
	}

	target := purge.ManyFiles(items...)
	template := ""
	if len(items) == 1 {
		target = purge.SingleFile(items[0])
		template = "CloudFlare cache has been purged for: " + items[0]
	}
	h.runPurgeWithTemplate(ctx, operator, fmt.Sprintf("%d item(s)", len(items)), template, target)
}

func (h *CommandHandler) handlePurgePageCommand(ctx context.Context, args string, operator *tgbotapi.User) {
	id := strings.TrimSpace(args)
	if id == "" || strings.ContainsAny(id, " ,") {
		h.sendText(ctx, "Usage: /purgepage <id>")
		return
	}
	h.runPurge(ctx, operator, "page "+id, purge.Page(id))
}

func (h *CommandHandler) handlePurgeAllCommand(ctx context.Context, operator *tgbotapi.User) {
	msg := fmt.Sprintf("Purge everything\nOperator: %s\n\nEvery cached file of the site will be fetched from the origin again. Continue?",
		formatOperator(operator))
	buttons := [][]Button{{
		{Text: "Purge everything", CallbackData: CallbackPurgeAllConfirm},
		{Text: "Cancel", CallbackData: CallbackPurgeAllCancel},
	}}
	if err := h.Sender.SendWithButtons(ctx, msg, buttons); err != nil {
		h.Logger.Warn("Failed to send purge confirmation", zap.Error(err))
	}
}

func (h *CommandHandler) runPurge(ctx context.Context, operator *tgbotapi.User, what string, targets ...purge.Target) {
	h.runPurgeWithTemplate(ctx, operator, what, "", targets...)
}

// runPurgeWithTemplate runs the purge; its result reaches the chat through the notification sink.
func (h *CommandHandler) runPurgeWithTemplate(ctx context.Context, operator *tgbotapi.User, what, template string, targets ...purge.Target) {
	if h.Purger == nil {
		h.sendText(ctx, "Purging is not configured.")
		return
	}
	h.sendText(ctx, fmt.Sprintf("Purging %s, requested by %s", what, formatOperator(operator)))

	res := h.Purger.Purge(ctx, targets, template)
	h.Logger.Info("Purge command finished",
		zap.String("operation_id", res.OperationID),
		zap.Bool("success", res.Success),
		zap.Int("files", len(res.Files)))
}

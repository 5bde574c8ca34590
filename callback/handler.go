// Package callback handles inline button presses from the operator chat.
package callback

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"CFPurge/purge"
	"CFPurge/telegram"
)

// Handler dispatches callback data of the form action|arg.
type Handler struct {
	Purger telegram.PurgeRunner
	Sender telegram.Sender
	ChatID int64
	Logger *zap.Logger
}

func NewHandler(purger telegram.PurgeRunner, sender telegram.Sender, chatID int64, logger *zap.Logger) *Handler {
	if sender == nil {
		sender = telegram.NoopSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Purger: purger, Sender: sender, ChatID: chatID, Logger: logger}
}

// HandleCallback runs the action in its own goroutine under ctx. Only presses on messages
// in ChatID are accepted; inline-mode callbacks carry no message and are dropped.
func (h *Handler) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if h.ChatID == 0 || cb.Message.Chat.ID != h.ChatID {
		h.Logger.Warn("Ignoring callback from foreign chat",
			zap.Int64("chat_id", cb.Message.Chat.ID),
			zap.String("operator", operatorName(cb.From)))
		return
	}
	go h.handle(ctx, cb.Data, cb.From)
}

func (h *Handler) handle(ctx context.Context, data string, user *tgbotapi.User) {
	parts := strings.Split(data, "|")
	action := parts[0]
	if action == "noop" || action == "" {
		return
	}

	operator := operatorName(user)
	h.Logger.Info("Handling callback", zap.String("data", data), zap.String("operator", operator))

	switch action {
	case "purgeall":
		if len(parts) < 2 {
			h.Logger.Warn("Invalid callback data", zap.String("data", data))
			return
		}
		switch parts[1] {
		case "yes":
			h.send(ctx, fmt.Sprintf("Purging everything, confirmed by %s", operator))
			h.purge(ctx, purge.All())
		case "no":
			h.send(ctx, fmt.Sprintf("Purge everything cancelled by %s", operator))
		default:
			h.Logger.Warn("Invalid callback data", zap.String("data", data))
		}

	case "purge":
		if len(parts) < 2 {
			h.Logger.Warn("Invalid callback data", zap.String("data", data))
			return
		}
		target, ok := categoryTarget(parts[1])
		if !ok {
			h.Logger.Warn("Unknown purge category", zap.String("category", parts[1]))
			return
		}
		h.send(ctx, fmt.Sprintf("Purging %s files, requested by %s", parts[1], operator))
		h.purge(ctx, target)

	default:
		h.Logger.Warn("Unknown callback action", zap.String("action", action))
	}
}

func categoryTarget(category string) (purge.Target, bool) {
	switch category {
	case "css":
		return purge.CSS(), true
	case "js":
		return purge.JavaScript(), true
	case "images":
		return purge.Images(), true
	default:
		return purge.Target{}, false
	}
}

func (h *Handler) purge(ctx context.Context, target purge.Target) {
	if h.Purger == nil {
		h.send(ctx, "Purging is not configured.")
		return
	}
	res := h.Purger.Purge(ctx, []purge.Target{target}, "")
	h.Logger.Info("Callback purge finished",
		zap.String("operation_id", res.OperationID),
		zap.Bool("success", res.Success))
}

func (h *Handler) send(ctx context.Context, msg string) {
	if err := h.Sender.Send(ctx, msg); err != nil {
		h.Logger.Warn("Failed to send telegram message", zap.Error(err))
	}
}

func operatorName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return fmt.Sprintf("id:%d", u.ID)
}

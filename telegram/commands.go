package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"CFPurge/purge"
	"CFPurge/zone"
)

// PurgeRunner is satisfied by *purge.Purger.
type PurgeRunner interface {
	Purge(ctx context.Context, targets []purge.Target, successTemplate string) purge.Result
}

// ZoneInspector is satisfied by *zone.Resolver.
type ZoneInspector interface {
	ResolveCurrent(ctx context.Context) (zone.Resolution, error)
	InvalidateCurrent(ctx context.Context) error
}

// CommandHandler handles bot commands from the configured chat.
type CommandHandler struct {
	Purger PurgeRunner
	Zones  ZoneInspector
	Sender Sender
	ChatID int64
	Logger *zap.Logger
}

func NewCommandHandler(purger PurgeRunner, zones ZoneInspector, sender Sender, chatID int64, logger *zap.Logger) *CommandHandler {
	if sender == nil {
		sender = NoopSender{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{Purger: purger, Zones: zones, Sender: sender, ChatID: chatID, Logger: logger}
}

// HandleMessage ignores messages from any chat but ChatID, and anything that is not a command.
// A zero ChatID accepts nothing. Commands run in their own goroutine under ctx.
func (h *CommandHandler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || !h.fromOperatorChat(msg.Chat) {
		return
	}
	if !msg.IsCommand() {
		return
	}
	go h.handleCommand(ctx, strings.ToLower(msg.Command()), msg.CommandArguments(), msg.From)
}

func (h *CommandHandler) fromOperatorChat(chat *tgbotapi.Chat) bool {
	return h.ChatID != 0 && chat != nil && chat.ID == h.ChatID
}

func (h *CommandHandler) handleCommand(ctx context.Context, command, args string, operator *tgbotapi.User) {
	h.Logger.Info("Handling command",
		zap.String("command", command),
		zap.String("operator", formatOperator(operator)))

	switch command {
	case "purge":
		h.handlePurgeCommand(ctx, args, operator)
	case "purgepage":
		h.handlePurgePageCommand(ctx, args, operator)
	case "purgecss":
		h.runPurge(ctx, operator, "CSS files", purge.CSS())
	case "purgejs":
		h.runPurge(ctx, operator, "JavaScript files", purge.JavaScript())
	case "purgeimages":
		h.runPurge(ctx, operator, "image files", purge.Images())
	case "purgeall":
		h.handlePurgeAllCommand(ctx, operator)
	case "zone":
		h.handleZoneCommand(ctx, args)
	case "help", "start":
		h.sendText(ctx, helpText)
	}
}

const helpText = `Commands:
/purge <url|path>[, <url|path>...] - purge URLs or files
/purgepage <id> - purge one page
/purgecss, /purgejs, /purgeimages - purge every file of that type
/purgeall - purge everything (asks for confirmation)
/zone - show the zone of this site
/zone forget - drop the cached zone id`

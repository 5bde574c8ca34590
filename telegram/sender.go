package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender abstracts the Telegram chat the operator works in.
type Sender interface {
	Send(ctx context.Context, msg string) error
	SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error
	StartListener(ctx context.Context, handleCallback CallbackFunc, handleMessage MessageFunc) error
}

// CallbackFunc and MessageFunc receive updates together with the listener's context.
type (
	CallbackFunc func(ctx context.Context, cb *tgbotapi.CallbackQuery)
	MessageFunc  func(ctx context.Context, msg *tgbotapi.Message)
)

// NoopSender is used when no bot token is configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string) error { return nil }
func (NoopSender) SendWithButtons(context.Context, string, [][]Button) error {
	return nil
}
func (NoopSender) StartListener(ctx context.Context, _ CallbackFunc, _ MessageFunc) error {
	<-ctx.Done()
	return nil
}

// BotSender sends to one chat with simple retry and rate limiting.
type BotSender struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	retryTimes int
	rate       *time.Ticker
	timeout    time.Duration
	logger     *zap.Logger
}

func NewBotSender(token string, chatID int64, retryTimes int, rateInterval, timeout time.Duration, logger *zap.Logger) (*BotSender, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &BotSender{
		bot:        bot,
		chatID:     chatID,
		retryTimes: retryTimes,
		rate:       time.NewTicker(rateInterval),
		timeout:    timeout,
		logger:     logger,
	}, nil
}

const tgMaxLen = 3800

// Send splits long messages into numbered parts.
func (s *BotSender) Send(ctx context.Context, msg string) error {
	parts := splitTelegramText(msg, tgMaxLen)
	for i, p := range parts {
		if len(parts) > 1 {
			p = fmt.Sprintf("(%d/%d)\n%s", i+1, len(parts), p)
		}
		if err := s.sendWithRetry(ctx, tgbotapi.NewMessage(s.chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

func (s *BotSender) SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error {
	message := tgbotapi.NewMessage(s.chatID, msg)
	message.ReplyMarkup = inlineKeyboard(buttons)
	return s.sendWithRetry(ctx, message)
}

func inlineKeyboard(buttons [][]Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range buttons {
		var row []tgbotapi.InlineKeyboardButton
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func splitTelegramText(s string, limit int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{""}
	}
	if len(s) <= limit {
		return []string{s}
	}

	var out []string
	for len(s) > limit {
		// prefer a newline, then a space, then a hard cut
		cut := strings.LastIndex(s[:limit], "\n")
		if cut < limit/3 {
			cut = strings.LastIndex(s[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
		}

		part := strings.TrimSpace(s[:cut])
		if part != "" {
			out = append(out, part)
		}
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func (s *BotSender) sendWithRetry(ctx context.Context, msg tgbotapi.Chattable) error {
	for attempt := 0; attempt <= s.retryTimes; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.rate.C:
		}

		sendCtx := ctx
		cancel := func() {}
		if s.timeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		}

		result := make(chan error, 1)
		go func() {
			_, err := s.bot.Send(msg)
			result <- err
		}()

		select {
		case <-sendCtx.Done():
			cancel()
			if attempt == s.retryTimes {
				return fmt.Errorf("telegram send timed out: %w", sendCtx.Err())
			}
		case err := <-result:
			cancel()
			if err == nil {
				return nil
			}
			if attempt == s.retryTimes {
				return fmt.Errorf("telegram send failed: %w", err)
			}
			s.logger.Debug("Retrying telegram send", zap.Int("attempt", attempt+1), zap.Error(err))
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
		}
	}
	return nil
}

// StartListener long-polls for updates until ctx is done. Callback queries are acknowledged after handling.
func (s *BotSender) StartListener(ctx context.Context, handleCallback CallbackFunc, handleMessage MessageFunc) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)
	defer s.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up := <-updates:
			if up.CallbackQuery != nil && handleCallback != nil {
				handleCallback(ctx, up.CallbackQuery)
				if _, err := s.bot.Request(tgbotapi.NewCallback(up.CallbackQuery.ID, "Received")); err != nil {
					s.logger.Debug("Failed to answer callback query", zap.Error(err))
				}
			}
			if up.Message != nil && handleMessage != nil {
				handleMessage(ctx, up.Message)
			}
		}
	}
}

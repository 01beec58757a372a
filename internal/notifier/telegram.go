// Package notifier posts cycle outcomes to a Telegram chat.
package notifier

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram sends one message per cycle to a single chat.
type Telegram struct {
	sender messageSender
	chat   *tele.Chat
}

var _ interfaces.Notifier = (*Telegram)(nil)

// NewTelegram builds an offline bot: it only sends and never polls for updates.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newWithSender(b, chatID), nil
}

func newWithSender(sender messageSender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chat: &tele.Chat{ID: chatID}}
}

func (t *Telegram) NotifyCycle(ctx context.Context, res *types.CycleResult, cycleErr error) error {
	return t.Send(ctx, FormatCycle(res, cycleErr, time.Now()))
}

// Send posts an already formatted HTML message.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if _, err := t.sender.Send(t.chat, text, tele.ModeHTML, tele.NoPreview); err != nil {
		logger.ErrorWithErr(ctx, "Telegram send failed", err, "chat_id", t.chat.ID)
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Noop is used when no bot token or chat is configured.
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) NotifyCycle(context.Context, *types.CycleResult, error) error { return nil }
func (Noop) Send(context.Context, string) error                         { return nil }

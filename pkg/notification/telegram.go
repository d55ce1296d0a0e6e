package notification

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the sink needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink sends a private chat message. For private chats the chat id
// equals the user's Telegram id.
type TelegramSink struct {
	bot Sender
}

func NewTelegramSink(bot Sender) *TelegramSink {
	return &TelegramSink{bot: bot}
}

func (s *TelegramSink) Notify(ctx context.Context, telegramID int64, text string) error {
	if telegramID == 0 {
		return errors.New("notification/telegram: empty chat id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(telegramID, text)); err != nil {
		return fmt.Errorf("notification/telegram: send to %d: %w", telegramID, err)
	}
	return nil
}

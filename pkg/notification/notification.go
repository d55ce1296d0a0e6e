// Package notification delivers short text messages to customers.
//
// Everything that can deliver a message implements Sink. Delivery is
// best-effort: the order engine logs a failed Notify and carries on.
//
//	sink := notification.Multi(
//	    notification.NewTelegramSink(bot),
//	    notification.NewWebhookSink(url),
//	)
//	_ = sink.Notify(ctx, user.TelegramID, "✅ Your order #7 is ready for collection!")
//
// Wrap a sink with NewQueuedSink to move delivery onto queue workers with
// retries.
package notification

import (
	"context"
	"errors"
	"log/slog"
)

// Sink delivers text to one Telegram user.
type Sink interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, telegramID int64, text string) error

func (f SinkFunc) Notify(ctx context.Context, telegramID int64, text string) error {
	return f(ctx, telegramID, text)
}

// LogSink only writes the message to the log. Used when no bot token is
// configured.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, telegramID int64, text string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "notification", "telegram_id", telegramID, "text", text)
	return nil
}

type multiSink []Sink

// Multi sends through every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Notify(ctx context.Context, telegramID int64, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, telegramID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package logger provides the process-wide structured logger built on
// log/slog.
//
// In production the slog front end is backed by zap's JSON core; locally it
// writes human-readable text. WithCtx returns a logger already tagged with
// the request or update id, so every line of one bot update or HTTP request
// is correlated:
//
//	log := logger.WithCtx(ctx)
//	log.Info("order confirmed", "order_id", 7)
//	// → level=INFO msg="order confirmed" request_id=upd-81723 order_id=7
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/shashiranjanraj/beanleaf/config"
)

var L *slog.Logger

func init() {
	L = New(config.AppEnv())
	slog.SetDefault(L)
}

// New builds a logger for the given environment name.
func New(env string) *slog.Logger {
	switch env {
	case "production", "prod":
		z, err := zap.NewProduction()
		if err != nil {
			return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		}
		return slog.New(zapslog.NewHandler(z.Core()))
	case "test":
		return Discard()
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─────────────────────────────────────────────
// Context-aware logger
// ─────────────────────────────────────────────

type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or the base
// logger when none is present.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a pre-tagged logger into ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }

// LevelFor picks the level for an HTTP access line: server errors are
// errors, client errors are warnings.
func LevelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Package bot is the Telegram front end: it turns updates into service
// calls and renders the results as chat messages.
//
// Customers browse the catalog, fill a cart and check out; the configured
// admin works the order queue. Every command is also reachable from the
// inline keyboards, whose callback data maps onto the same handlers.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shashiranjanraj/beanleaf/app/cart"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/reqid"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps are the services behind the commands.
type Deps struct {
	Users    *services.UserService
	Catalog  *services.CatalogService
	Orders   *services.OrderService
	Checkout *services.CheckoutService
	Carts    *cart.Store
}

// Bot routes Telegram updates to command handlers.
type Bot struct {
	api      API
	deps     Deps
	commands map[string]command
	log      *slog.Logger
	workers  int
	timeout  time.Duration
}

// Option configures a Bot.
type Option func(*Bot)

// WithWorkers sets how many updates are handled concurrently.
func WithWorkers(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.log = l }
}

func New(api API, deps Deps, opts ...Option) *Bot {
	b := &Bot{
		api:     api,
		deps:    deps,
		log:     logger.L,
		workers: 4,
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	b.commands = b.routes()
	return b
}

// input is one command invocation, whether typed or tapped.
type input struct {
	name   string
	args   string
	who    services.Identity
	chatID int64
}

// reply is what the bot answers with.
type reply struct {
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
}

func text(s string) reply { return reply{text: s} }

// Run long-polls for updates until ctx is cancelled, then waits for the
// updates in flight.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	b.log.Info("bot: polling for updates", "workers", b.workers)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot: stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				b.Handle(ctx, upd)
			}()
		}
	}
}

// Handle processes one update synchronously.
func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	id := reqid.ForUpdate(upd.UpdateID)
	log := b.log.With("request_id", id)
	ctx = logger.InjectLogger(reqid.WithValue(ctx, id), log)
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("bot: handler panicked", "panic", r)
		}
	}()

	in, ok := b.parse(ctx, upd)
	if !ok {
		return
	}
	log.Debug("bot: command", "command", in.name, "telegram_id", in.who.TelegramID)

	out := b.dispatch(ctx, in)
	if out.text == "" {
		return
	}
	msg := tgbotapi.NewMessage(in.chatID, out.text)
	if out.markup != nil {
		msg.ReplyMarkup = *out.markup
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Warn("bot: send reply failed", "chat_id", in.chatID, "error", err)
	}
}

func (b *Bot) parse(ctx context.Context, upd tgbotapi.Update) (input, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			logger.WithCtx(ctx).Debug("bot: answer callback failed", "error", err)
		}
		if cq.From == nil {
			return input{}, false
		}
		name, args := fromCallback(cq.Data)
		chatID := cq.From.ID
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = cq.Message.Chat.ID
		}
		return input{name: name, args: args, who: identity(cq.From), chatID: chatID}, true

	case upd.Message != nil && upd.Message.IsCommand() && upd.Message.From != nil:
		m := upd.Message
		return input{
			name:   strings.ToLower(m.Command()),
			args:   strings.TrimSpace(m.CommandArguments()),
			who:    identity(m.From),
			chatID: m.Chat.ID,
		}, true
	}
	return input{}, false
}

func identity(u *tgbotapi.User) services.Identity {
	return services.Identity{
		TelegramID: u.ID,
		Username:   u.UserName,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
	}
}

// fromCallback maps inline keyboard data onto a command and its arguments.
func fromCallback(data string) (name, args string) {
	switch data {
	case "browse":
		return "menu", ""
	case "cart":
		return "cart", ""
	case "clear_cart":
		return "clear", ""
	case "checkout":
		return "checkout", ""
	case "main_menu":
		return "start", ""
	case "admin":
		return "admin", ""
	case "admin_order_queue":
		return "queue", ""
	case "admin_products":
		return "products", ""
	case "admin_sales":
		return "stats", ""
	}
	for prefix, name := range map[string]string{
		"addcart_":        "add",
		"order_paid_":     "paid",
		"order_accept_":   "paid",
		"order_complete_": "complete",
		"order_decline_":  "decline",
	} {
		if rest, ok := strings.CutPrefix(data, prefix); ok {
			return name, rest
		}
	}
	return "", ""
}

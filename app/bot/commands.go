package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

type command struct {
	admin bool
	run   func(ctx context.Context, in input) reply
}

func (b *Bot) routes() map[string]command {
	return map[string]command{
		"start":    {run: b.start},
		"help":     {run: b.help},
		"menu":     {run: b.menu},
		"add":      {run: b.add},
		"cart":     {run: b.cart},
		"clear":    {run: b.clear},
		"checkout": {run: b.checkout},
		"orders":   {run: b.myOrders},
		"receipt":  {run: b.receipt},

		"admin":      {admin: true, run: b.adminPanel},
		"queue":      {admin: true, run: b.queue},
		"paid":       {admin: true, run: b.transition(markPaid)},
		"complete":   {admin: true, run: b.transition(markComplete)},
		"decline":    {admin: true, run: b.transition(markDecline)},
		"stats":      {admin: true, run: b.stats},
		"products":   {admin: true, run: b.products},
		"newproduct": {admin: true, run: b.newProduct},
		"stock":      {admin: true, run: b.stock},
		"toggle":     {admin: true, run: b.toggle},
	}
}

func (b *Bot) dispatch(ctx context.Context, in input) reply {
	cmd, ok := b.commands[in.name]
	if !ok {
		return text("🤔 Unknown command. Try /help.")
	}
	if cmd.admin {
		admin, err := b.isAdmin(ctx, in.who)
		if err != nil {
			return b.fail(ctx, err, "❌ An error occurred. Please try again.")
		}
		if !admin {
			return text("❌ You don't have admin access.")
		}
	}
	return cmd.run(ctx, in)
}

// isAdmin honours both the stored flag and the configured admin id.
func (b *Bot) isAdmin(ctx context.Context, who services.Identity) (bool, error) {
	if b.deps.Users.IsAdmin(who.TelegramID) {
		return true, nil
	}
	u, err := b.deps.Users.GetOrCreate(ctx, who)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// fail turns a service error into chat text. Unexpected errors are logged
// and answered with fallback.
func (b *Bot) fail(ctx context.Context, err error, fallback string) reply {
	var stock *services.InsufficientStockError
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &stock):
		return text(fmt.Sprintf("❌ Not enough stock for %s. Available: %d", stock.ProductName, stock.Available))
	case errors.As(err, &invalid):
		return text("❌ " + invalid.Error())
	case errors.Is(err, services.ErrEmptyCart):
		return text("❌ Your cart is empty!")
	case errors.Is(err, services.ErrProductNotFound):
		return text("❌ Product not found.")
	case errors.Is(err, services.ErrOrderNotFound):
		return text("❌ Order not found")
	case errors.Is(err, services.ErrNegativePrice), errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrNegativeStock), errors.Is(err, services.ErrInvalidStock):
		return text("❌ " + err.Error())
	case errors.Is(err, recordstore.ErrBackendUnavailable):
		logger.WithCtx(ctx).Warn("bot: backend unavailable", "error", err)
		return text("⏳ The store is temporarily unavailable. Please try again shortly.")
	}
	logger.WithCtx(ctx).Error("bot: command failed", "error", err)
	return text(fallback)
}

func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	return id, err == nil && id > 0
}

// ─── Customer commands ───────────────────────────────────────────────────────

func (b *Bot) start(ctx context.Context, in input) reply {
	u, err := b.deps.Users.GetOrCreate(ctx, in.who)
	if err != nil {
		return b.fail(ctx, err, "❌ An error occurred. Please try again.")
	}
	msg := fmt.Sprintf("👋 Welcome to BeanLeaf POS, %s!\n\n🛍️ Browse our products and place orders easily.\n\nUse the menu below to get started:", u.FullName())
	return reply{text: msg, markup: mainMenuKeyboard(u.IsAdmin || b.deps.Users.IsAdmin(in.who.TelegramID))}
}

func (b *Bot) help(ctx context.Context, in input) reply {
	var sb strings.Builder
	sb.WriteString("ℹ️ Commands\n\n")
	sb.WriteString("/menu: browse products\n")
	sb.WriteString("/add <id> [qty]: add to cart\n")
	sb.WriteString("/cart: view cart\n")
	sb.WriteString("/clear: empty cart\n")
	sb.WriteString("/checkout: place the order\n")
	sb.WriteString("/orders: your orders\n")
	sb.WriteString("/receipt <id>: order receipt")
	if admin, err := b.isAdmin(ctx, in.who); err == nil && admin {
		sb.WriteString("\n\n🔧 Staff\n\n")
		sb.WriteString("/queue: open orders\n")
		sb.WriteString("/paid <id>, /complete <id>, /decline <id>\n")
		sb.WriteString("/stats: sales statistics\n")
		sb.WriteString("/products: catalog\n")
		sb.WriteString("/newproduct name|price|stock|description\n")
		sb.WriteString("/stock <id> <n>, /toggle <id>")
	}
	return text(sb.String())
}

func (b *Bot) menu(ctx context.Context, _ input) reply {
	products, err := b.deps.Catalog.List(ctx, true)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading products. Please try again.")
	}
	if len(products) == 0 {
		return text(FormatMenu(products))
	}
	return reply{text: FormatMenu(products), markup: productsKeyboard(products)}
}

func (b *Bot) add(ctx context.Context, in input) reply {
	fields := strings.Fields(in.args)
	if len(fields) == 0 || len(fields) > 2 {
		return text("Usage: /add <product id> [quantity]")
	}
	id, ok := parseID(fields[0])
	if !ok {
		return text("Usage: /add <product id> [quantity]")
	}
	qty := 1
	if len(fields) == 2 {
		if qty, ok = parseID(fields[1]); !ok {
			return text("❌ Quantity must be a positive number.")
		}
	}

	p, err := b.deps.Catalog.Get(ctx, id)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading product.")
	}
	if !p.IsAvailable {
		return text(fmt.Sprintf("❌ %s is not available right now.", p.Name))
	}

	total := b.deps.Carts.Add(in.who.TelegramID, p.ID, qty)
	return reply{
		text:   fmt.Sprintf("✅ Added %d x %s to your cart (%d in cart).", qty, p.Name, total),
		markup: cartKeyboard(),
	}
}

func (b *Bot) cart(ctx context.Context, in input) reply {
	lines := b.deps.Carts.Lines(in.who.TelegramID)
	if len(lines) == 0 {
		return text(FormatCart(nil, nil))
	}
	products := make(map[int]models.Product, len(lines))
	for _, l := range lines {
		p, err := b.deps.Catalog.Get(ctx, l.ProductID)
		if errors.Is(err, services.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return b.fail(ctx, err, "❌ Error loading cart.")
		}
		products[p.ID] = p
	}
	return reply{text: FormatCart(lines, products), markup: cartKeyboard()}
}

func (b *Bot) clear(_ context.Context, in input) reply {
	b.deps.Carts.Clear(in.who.TelegramID)
	return text("🗑️ Cart cleared!")
}

func (b *Bot) checkout(ctx context.Context, in input) reply {
	order, err := b.deps.Checkout.Checkout(ctx, in.who)
	if err != nil {
		return b.fail(ctx, err, "❌ An error occurred during checkout.")
	}
	return text(FormatOrderPlaced(order))
}

func (b *Bot) myOrders(ctx context.Context, in input) reply {
	u, err := b.deps.Users.GetOrCreate(ctx, in.who)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading orders.")
	}
	orders, err := b.deps.Orders.OrdersForUser(ctx, u.ID)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading orders.")
	}
	return text(FormatOrders(orders))
}

func (b *Bot) receipt(ctx context.Context, in input) reply {
	id, ok := parseID(in.args)
	if !ok {
		return text("Usage: /receipt <order id>")
	}
	u, err := b.deps.Users.GetOrCreate(ctx, in.who)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading order.")
	}
	order, err := b.deps.Orders.Order(ctx, id)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading order.")
	}
	if order.UserID != u.ID && !u.IsAdmin && !b.deps.Users.IsAdmin(in.who.TelegramID) {
		return text("❌ Order not found")
	}
	return text(FormatReceipt(order))
}

// ─── Staff commands ──────────────────────────────────────────────────────────

func (b *Bot) adminPanel(context.Context, input) reply {
	return reply{text: "🔧 Admin Panel\n\nManage your POS system:", markup: adminKeyboard()}
}

func (b *Bot) queue(ctx context.Context, _ input) reply {
	return b.queueWith(ctx, "")
}

func (b *Bot) queueWith(ctx context.Context, notice string) reply {
	orders, err := b.deps.Orders.PendingQueue(ctx)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading the order queue.")
	}
	return reply{text: FormatQueue(orders, notice), markup: queueKeyboard(orders)}
}

type action struct {
	run     func(s *services.OrderService, ctx context.Context, id int) (models.Order, error)
	done    string // notice after success, %d is the order id
	refused string // reply when the order is not in a state that allows it
}

var (
	markPaid     = action{(*services.OrderService).ConfirmPayment, "💵 Order #%d marked paid", "⚠️ Order not pending"}
	markComplete = action{(*services.OrderService).Fulfil, "✅ Order #%d completed", "⚠️ Order cannot be completed"}
	markDecline  = action{(*services.OrderService).Decline, "❌ Order #%d declined", "⚠️ Order already processed"}
)

func (b *Bot) transition(a action) func(context.Context, input) reply {
	return func(ctx context.Context, in input) reply {
		id, ok := parseID(in.args)
		if !ok {
			return text("❌ Invalid order ID")
		}
		order, err := a.run(b.deps.Orders, ctx, id)
		if errors.Is(err, services.ErrInvalidTransition) {
			return text(a.refused)
		}
		if err != nil {
			return b.fail(ctx, err, "❌ Could not update the order.")
		}
		return b.queueWith(ctx, fmt.Sprintf(a.done, order.ID))
	}
}

func (b *Bot) stats(ctx context.Context, _ input) reply {
	r, err := b.deps.Orders.CompletedReport(ctx)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading statistics.")
	}
	return text(FormatReport(r))
}

func (b *Bot) products(ctx context.Context, _ input) reply {
	products, err := b.deps.Catalog.List(ctx, false)
	if err != nil {
		return b.fail(ctx, err, "❌ Error loading products.")
	}
	return text(FormatProducts(products))
}

const newProductUsage = "Usage: /newproduct name|price|stock|description"

func (b *Bot) newProduct(ctx context.Context, in input) reply {
	parts := strings.SplitN(in.args, "|", 4)
	if len(parts) < 3 || strings.TrimSpace(parts[0]) == "" {
		return text(newProductUsage)
	}
	price, err := services.ValidatePrice(parts[1])
	if err != nil {
		return b.fail(ctx, err, newProductUsage)
	}
	stock, err := services.ValidateStock(parts[2])
	if err != nil {
		return b.fail(ctx, err, newProductUsage)
	}
	req := services.CreateProductRequest{Name: parts[0], Price: price, Stock: stock}
	if len(parts) == 4 {
		req.Description = strings.TrimSpace(parts[3])
	}

	p, err := b.deps.Catalog.Add(ctx, req)
	if err != nil {
		return b.fail(ctx, err, "❌ Could not add the product.")
	}
	return text(fmt.Sprintf("✅ Product added: #%d %s - %s (Stock: %d)", p.ID, p.Name, FormatCurrency(p.Price), p.Stock))
}

func (b *Bot) stock(ctx context.Context, in input) reply {
	fields := strings.Fields(in.args)
	if len(fields) != 2 {
		return text("Usage: /stock <product id> <count>")
	}
	id, ok := parseID(fields[0])
	if !ok {
		return text("Usage: /stock <product id> <count>")
	}
	n, err := services.ValidateStock(fields[1])
	if err != nil {
		return b.fail(ctx, err, "Usage: /stock <product id> <count>")
	}
	p, err := b.deps.Catalog.SetStock(ctx, id, n)
	if err != nil {
		return b.fail(ctx, err, "❌ Could not update stock.")
	}
	return text(fmt.Sprintf("📦 %s stock set to %d", p.Name, p.Stock))
}

func (b *Bot) toggle(ctx context.Context, in input) reply {
	id, ok := parseID(in.args)
	if !ok {
		return text("Usage: /toggle <product id>")
	}
	p, err := b.deps.Catalog.ToggleAvailability(ctx, id)
	if err != nil {
		return b.fail(ctx, err, "❌ Could not update the product.")
	}
	if p.IsAvailable {
		return text(fmt.Sprintf("✅ %s is now available", p.Name))
	}
	return text(fmt.Sprintf("❌ %s is now hidden from the menu", p.Name))
}

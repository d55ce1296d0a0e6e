package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shashiranjanraj/beanleaf/app/models"
)

func mainMenuKeyboard(admin bool) *tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛍️ Browse Products", "browse")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 View Cart", "cart")),
	}
	if admin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔧 Admin Panel", "admin")))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func adminKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📥 Order Queue", "admin_order_queue")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📦 Manage Products", "admin_products")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 Sales Statistics", "admin_sales")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", "main_menu")),
	)
	return &kb
}

// productsKeyboard offers one "add to cart" button per product in stock.
func productsKeyboard(products []models.Product) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range products {
		if p.Stock == 0 {
			continue
		}
		label := fmt.Sprintf("➕ %s - %s", p.Name, FormatCurrency(p.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "addcart_"+strconv.Itoa(p.ID))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 View Cart", "cart")))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func cartKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Checkout", "checkout")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑️ Clear Cart", "clear_cart")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛍️ Continue Shopping", "browse")),
	)
	return &kb
}

// queueKeyboard offers the next actions for each open order: pending orders
// can be marked paid, paid orders completed, and both declined.
func queueKeyboard(orders []models.Order) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range orders {
		id := strconv.Itoa(o.ID)
		advance := tgbotapi.NewInlineKeyboardButtonData("💵 Mark Paid #"+id, "order_paid_"+id)
		if o.Status == models.StatusPaid {
			advance = tgbotapi.NewInlineKeyboardButtonData("✅ Mark Completed #"+id, "order_complete_"+id)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			advance,
			tgbotapi.NewInlineKeyboardButtonData("❌ Decline #"+id, "order_decline_"+id),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "admin_order_queue")))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

package bot

import (
	"fmt"
	"strings"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/services"
)

const rule = "=============================="

// FormatCurrency renders an amount the way the till shows it.
func FormatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

const dateLayout = "2006-01-02 15:04:05"

// FormatReceipt renders the customer receipt for an order and its items.
// The date is the completion time when there is one.
func FormatReceipt(order models.Order) string {
	when := order.CreatedAt
	if order.CompletedAt != nil {
		when = *order.CompletedAt
	}

	var b strings.Builder
	b.WriteString("🧾 Order Receipt\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "📋 Order ID: #%d\n", order.ID)
	fmt.Fprintf(&b, "📅 Date: %s\n", when.Format(dateLayout))
	fmt.Fprintf(&b, "📌 Status: %s\n\n", order.Status.Label())
	b.WriteString("Items:\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "• %s\n  %d x %s = %s\n", it.ProductName, it.Quantity, FormatCurrency(it.Price), FormatCurrency(it.Subtotal))
	}
	b.WriteString("\n" + rule + "\n")
	fmt.Fprintf(&b, "💰 Total: %s\n\n", FormatCurrency(order.TotalAmount))
	b.WriteString("Thank you for your purchase! 🎉")
	return b.String()
}

// FormatOrderPlaced confirms a fresh checkout.
func FormatOrderPlaced(order models.Order) string {
	lines := []string{
		"✅ Order placed!",
		"Status: Pending store confirmation",
		fmt.Sprintf("Order ID: #%d", order.ID),
		"Total: " + FormatCurrency(order.TotalAmount),
		"",
		"Items:",
	}
	for _, it := range order.Items {
		lines = append(lines, fmt.Sprintf("• %s: %d x %s = %s", it.ProductName, it.Quantity, FormatCurrency(it.Price), FormatCurrency(it.Subtotal)))
	}
	return strings.Join(lines, "\n")
}

// itemSummary is "2 x Latte, 1 x Scone".
func itemSummary(items []models.OrderItem) string {
	if len(items) == 0 {
		return "No items"
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%d x %s", it.Quantity, it.ProductName)
	}
	return strings.Join(parts, ", ")
}

// FormatQueue renders the staff order queue. notice, when set, reports the
// action that was just taken.
func FormatQueue(orders []models.Order, notice string) string {
	var b strings.Builder
	b.WriteString("📥 Order Queue\n\n")
	if notice != "" {
		b.WriteString(notice + "\n\n")
	}
	if len(orders) == 0 {
		b.WriteString("No pending orders right now.")
		return b.String()
	}
	for _, o := range orders {
		fmt.Fprintf(&b, "• Order #%d: %s (%s)\n  Items: %s\n", o.ID, FormatCurrency(o.TotalAmount), o.Status.Label(), itemSummary(o.Items))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatReport renders the sales statistics.
func FormatReport(r services.SalesReport) string {
	return fmt.Sprintf("📊 Sales Statistics\n\n📦 Total Orders: %d\n💰 Total Revenue: %s\n📈 Average Order: %s",
		r.Count, FormatCurrency(r.Revenue), FormatCurrency(r.Average))
}

// FormatCart renders a cart priced at current catalog prices. Lines whose
// product has vanished are skipped.
func FormatCart(lines []models.OrderLine, products map[int]models.Product) string {
	if len(lines) == 0 {
		return "🛒 Your cart is empty.\n\nUse /menu to add items!"
	}
	var b strings.Builder
	b.WriteString("🛒 Your Shopping Cart\n\n")
	var total float64
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		subtotal := models.RoundMoney(p.Price * float64(l.Quantity))
		total += subtotal
		fmt.Fprintf(&b, "• %s x%d = %s\n", p.Name, l.Quantity, FormatCurrency(subtotal))
	}
	fmt.Fprintf(&b, "\n💰 Total: %s", FormatCurrency(models.RoundMoney(total)))
	return b.String()
}

// FormatMenu lists products for customers.
func FormatMenu(products []models.Product) string {
	if len(products) == 0 {
		return "❌ No products available at the moment."
	}
	var b strings.Builder
	b.WriteString("🛍️ Available Products\n\n")
	for _, p := range products {
		fmt.Fprintf(&b, "#%d %s - %s", p.ID, p.Name, FormatCurrency(p.Price))
		if p.Stock == 0 {
			b.WriteString(" (Out of Stock)")
		}
		b.WriteString("\n")
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", p.Description)
		}
	}
	b.WriteString("\nAdd with /add <id> [qty]")
	return b.String()
}

// FormatProducts lists the whole catalog for staff.
func FormatProducts(products []models.Product) string {
	if len(products) == 0 {
		return "📦 No products found.\n\nAdd your first product with /newproduct."
	}
	var b strings.Builder
	b.WriteString("📦 Product Management\n\n")
	for _, p := range products {
		mark := "✅"
		if !p.IsAvailable {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s #%d %s - %s (Stock: %d)\n", mark, p.ID, p.Name, FormatCurrency(p.Price), p.Stock)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatOrders lists a customer's own orders, newest first.
func FormatOrders(orders []models.Order) string {
	if len(orders) == 0 {
		return "You have no orders yet."
	}
	var b strings.Builder
	b.WriteString("🧾 Your Orders\n\n")
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		fmt.Fprintf(&b, "• #%d %s %s: %s\n", o.ID, o.CreatedAt.Format("2006-01-02"), FormatCurrency(o.TotalAmount), o.Status.Label())
	}
	b.WriteString("\nSee a receipt with /receipt <id>")
	return b.String()
}

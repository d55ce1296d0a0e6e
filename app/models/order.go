package models

import (
	"strings"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

const (
	OrdersCollection     = "Orders"
	OrderItemsCollection = "OrderItems"
)

// OrderFields and OrderItemFields are the persisted column orders.
var (
	OrderFields     = []string{"id", "user_id", "total_amount", "status", "created_at", "completed_at"}
	OrderItemFields = []string{"id", "order_id", "product_id", "product_name", "quantity", "price", "subtotal"}
)

// OrderStatus is where an order sits in its lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions lists the statuses reachable from each non-terminal status.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCompleted, StatusCancelled},
	StatusPaid:    {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Open reports whether the order still needs staff attention.
func (s OrderStatus) Open() bool {
	return s == StatusPending || s == StatusPaid
}

// Label is the capitalised status for display.
func (s OrderStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Order is a customer's purchase. TotalAmount is fixed at creation.
type Order struct {
	ID          int         `json:"id"`
	UserID      int         `json:"user_id"`
	TotalAmount float64     `json:"total_amount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`

	Items []OrderItem `json:"items,omitempty"`
}

// OrderFromRecord maps a stored row onto an Order. Status is lowercased and
// defaults to pending.
func OrderFromRecord(r recordstore.Record) Order {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(r["status"])))
	if status == "" {
		status = StatusPending
	}
	return Order{
		ID:          toInt(r["id"]),
		UserID:      toInt(r["user_id"]),
		TotalAmount: toFloat(r["total_amount"]),
		Status:      status,
		CreatedAt:   toTimeOrZero(r["created_at"]),
		CompletedAt: toTimePtr(r["completed_at"]),
	}
}

// Record maps o back onto a row. Items are stored separately.
func (o Order) Record() recordstore.Record {
	r := recordstore.Record{
		"user_id":      fmtInt(o.UserID),
		"total_amount": fmtFloat(o.TotalAmount),
		"status":       string(o.Status),
		"created_at":   fmtTime(o.CreatedAt),
		"completed_at": fmtTimePtr(o.CompletedAt),
	}
	if o.ID != 0 {
		r["id"] = fmtInt(o.ID)
	}
	return r
}

// OrderItem is a snapshot of one cart line. Name and price are copied from
// the product at order time and never change afterwards.
type OrderItem struct {
	ID          int     `json:"id"`
	OrderID     int     `json:"order_id"`
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
}

// NewOrderItem snapshots p for qty units.
func NewOrderItem(orderID int, p Product, qty int) OrderItem {
	return OrderItem{
		OrderID:     orderID,
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		Price:       p.Price,
		Subtotal:    RoundMoney(p.Price * float64(qty)),
	}
}

// OrderItemFromRecord maps a stored row onto an OrderItem.
func OrderItemFromRecord(r recordstore.Record) OrderItem {
	return OrderItem{
		ID:          toInt(r["id"]),
		OrderID:     toInt(r["order_id"]),
		ProductID:   toInt(r["product_id"]),
		ProductName: r["product_name"],
		Quantity:    toInt(r["quantity"]),
		Price:       toFloat(r["price"]),
		Subtotal:    toFloat(r["subtotal"]),
	}
}

// Record maps i back onto a row.
func (i OrderItem) Record() recordstore.Record {
	r := recordstore.Record{
		"order_id":     fmtInt(i.OrderID),
		"product_id":   fmtInt(i.ProductID),
		"product_name": i.ProductName,
		"quantity":     fmtInt(i.Quantity),
		"price":        fmtFloat(i.Price),
		"subtotal":     fmtFloat(i.Subtotal),
	}
	if i.ID != 0 {
		r["id"] = fmtInt(i.ID)
	}
	return r
}

// OrderLine is one requested product and quantity, as collected in a cart.
type OrderLine struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

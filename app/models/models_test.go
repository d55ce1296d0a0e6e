package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

func TestCoercion(t *testing.T) {
	assert.Equal(t, 3, toInt("3"))
	assert.Equal(t, 3, toInt("3.0"))
	assert.Equal(t, 3, toInt("3.9"))
	assert.Equal(t, 0, toInt(""))
	assert.Equal(t, 0, toInt("abc"))
	assert.Equal(t, int64(123456789012), toInt64("123456789012"))

	assert.Equal(t, 4.5, toFloat("4.5"))
	assert.Equal(t, 0.0, toFloat(""))
	assert.Equal(t, 0.0, toFloat("NaN"))

	assert.True(t, toBool("TRUE"))
	assert.True(t, toBool(" true "))
	assert.False(t, toBool("yes"))
	assert.False(t, toBool(""))

	assert.Equal(t, "4.5", fmtFloat(4.5))
	assert.Equal(t, "5", fmtFloat(5))
	assert.Equal(t, 10.1, RoundMoney(3.3666*3))
}

func TestTimestamps(t *testing.T) {
	ts, ok := toTime("2024-03-01T10:20:30.123456+00:00")
	assert.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	_, ok = toTime("")
	assert.False(t, ok)

	assert.True(t, toTimeOrZero("").IsZero())
	assert.True(t, toTimeOrZero("last tuesday").IsZero())
	assert.Equal(t, "", fmtTime(toTimeOrZero("")))
	assert.Nil(t, toTimePtr(""))
	assert.Equal(t, "", fmtTimePtr(nil))
}

func TestUserMapping(t *testing.T) {
	rec := recordstore.Record{
		"id": "4", "telegram_id": "987654321", "username": "bean",
		"first_name": "Ana", "last_name": "", "is_admin": "True",
		"created_at": "2024-01-02T03:04:05Z",
	}
	u := UserFromRecord(rec)
	assert.Equal(t, 4, u.ID)
	assert.Equal(t, int64(987654321), u.TelegramID)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "Ana", u.FullName())

	back := u.Record()
	assert.Equal(t, "4", back["id"])
	assert.Equal(t, "true", back["is_admin"])
	assert.Equal(t, "2024-01-02T03:04:05Z", back["created_at"])

	assert.NotContains(t, User{TelegramID: 1}.Record(), "id")
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ana Lima", User{FirstName: "Ana", LastName: "Lima"}.FullName())
	assert.Equal(t, "Ana", User{FirstName: "Ana", Username: "al"}.FullName())
	assert.Equal(t, "al", User{Username: "al", TelegramID: 9}.FullName())
	assert.Equal(t, "9", User{TelegramID: 9}.FullName())
}

func TestProductMapping(t *testing.T) {
	p := ProductFromRecord(recordstore.Record{"id": "2", "name": "Latte", "price": "4.50", "stock": "7.0"})
	assert.Equal(t, 2, p.ID)
	assert.Equal(t, 4.5, p.Price)
	assert.Equal(t, 7, p.Stock)
	assert.True(t, p.IsAvailable, "empty is_available reads as available")
	assert.Equal(t, "", p.Description)

	p = ProductFromRecord(recordstore.Record{"is_available": "FALSE"})
	assert.False(t, p.IsAvailable)

	rec := Product{ID: 2, Name: "Latte", Price: 4.5, Stock: 7, IsAvailable: true}.Record()
	assert.Equal(t, "4.5", rec["price"])
	assert.Equal(t, "7", rec["stock"])
	assert.Equal(t, "true", rec["is_available"])
}

func TestOrderMapping(t *testing.T) {
	o := OrderFromRecord(recordstore.Record{"id": "1", "user_id": "3", "total_amount": "9.5", "status": "PAID"})
	assert.Equal(t, StatusPaid, o.Status)
	assert.Nil(t, o.CompletedAt)
	assert.Equal(t, 9.5, o.TotalAmount)

	o = OrderFromRecord(recordstore.Record{"id": "1"})
	assert.Equal(t, StatusPending, o.Status)

	done := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	o.CompletedAt = &done
	assert.Equal(t, "2024-05-06T07:08:09Z", o.Record()["completed_at"])
}

func TestOrderItemSnapshot(t *testing.T) {
	item := NewOrderItem(5, Product{ID: 2, Name: "Latte", Price: 4.35}, 3)
	assert.Equal(t, 13.05, item.Subtotal)
	assert.Equal(t, "Latte", item.ProductName)

	back := OrderItemFromRecord(item.Record())
	assert.Equal(t, item, back)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusPaid.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPaid.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPaid.CanTransitionTo(StatusPending))
	assert.False(t, StatusPaid.CanTransitionTo(StatusPaid))

	for _, s := range []OrderStatus{StatusCompleted, StatusCancelled} {
		assert.True(t, s.Terminal())
		for _, to := range []OrderStatus{StatusPending, StatusPaid, StatusCompleted, StatusCancelled} {
			assert.False(t, s.CanTransitionTo(to))
		}
	}
	assert.Equal(t, "Paid", StatusPaid.Label())
	assert.True(t, StatusPaid.Open())
	assert.False(t, StatusCompleted.Open())
}

func TestOrderMapping_BlankCreatedAtStaysBlank(t *testing.T) {
	o := OrderFromRecord(recordstore.Record{"id": "4", "user_id": "1", "total_amount": "7", "status": "paid", "created_at": ""})
	assert.True(t, o.CreatedAt.IsZero())

	o.Status = StatusCompleted
	assert.Equal(t, "", o.Record()["created_at"])
}

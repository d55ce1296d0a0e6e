package services

import (
	"context"

	"github.com/shashiranjanraj/beanleaf/app/cart"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
)

// CheckoutService turns a customer's cart into a pending order.
type CheckoutService struct {
	users  *UserService
	orders *OrderService
	carts  *cart.Store
	locker lock.Locker
}

func NewCheckoutService(users *UserService, orders *OrderService, carts *cart.Store, locker lock.Locker) *CheckoutService {
	return &CheckoutService{users: users, orders: orders, carts: carts, locker: locker}
}

// Checkout places an order for the cart of id. The cart is emptied only once
// the order exists, so a failed checkout can simply be retried. Reading,
// ordering and clearing the cart hold "cart:<telegram id>", so a repeated
// tap finds the cart already empty.
func (s *CheckoutService) Checkout(ctx context.Context, id Identity) (models.Order, error) {
	release, err := s.locker.Acquire(ctx, lock.Key("cart", id.TelegramID))
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	lines := s.carts.Lines(id.TelegramID)
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	user, err := s.users.GetOrCreate(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	order, err := s.orders.Create(ctx, user, lines)
	if err != nil {
		return models.Order{}, err
	}
	s.carts.Clear(id.TelegramID)
	return order, nil
}

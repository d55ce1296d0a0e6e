package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/metrics"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// SalesReport summarises completed orders.
type SalesReport struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
	Average float64 `json:"average"`
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

// WithRestockOnDecline returns stock to the shelf when a paid order is
// declined.
func WithRestockOnDecline(on bool) OrderOption {
	return func(s *OrderService) { s.restockOnDecline = on }
}

// WithEventBus publishes every transition on bus.
func WithEventBus(bus *event.Bus) OrderOption {
	return func(s *OrderService) { s.bus = bus }
}

// WithClock replaces time.Now for completed_at stamps.
func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

// OrderService runs the order lifecycle:
//
//	pending ──▶ paid ──▶ completed
//	   │          │
//	   ├──────────┴────▶ cancelled
//	   └─────────────▶ completed
//
// Every transition holds "order:<id>". Stock changes additionally hold the
// "product:<id>" locks of the order's products, taken in sorted order.
type OrderService struct {
	repos  *repositories.Set
	locker lock.Locker
	sink   notification.Sink
	bus    *event.Bus
	now    func() time.Time

	restockOnDecline bool
}

func NewOrderService(repos *repositories.Set, locker lock.Locker, sink notification.Sink, opts ...OrderOption) *OrderService {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	s := &OrderService{
		repos:  repos,
		locker: locker,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates lines against the catalog and records a pending order with
// one item per line. Nothing is written when validation fails, and stock is
// left alone until payment is confirmed.
func (s *OrderService) Create(ctx context.Context, user models.User, lines []models.OrderLine) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	requested := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return models.Order{}, fmt.Errorf("product %d: %w", l.ProductID, ErrInvalidQuantity)
		}
		requested[l.ProductID] += l.Quantity
	}

	products, err := s.loadProducts(ctx, sortedIDs(requested))
	if err != nil {
		return models.Order{}, err
	}
	if err := checkStock(products, requested); err != nil {
		return models.Order{}, err
	}

	total := 0.0
	for _, l := range lines {
		total += models.RoundMoney(products[l.ProductID].Price * float64(l.Quantity))
	}

	order := models.Order{
		UserID:      user.ID,
		TotalAmount: models.RoundMoney(total),
		Status:      models.StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.repos.Orders.Save(ctx, &order); err != nil {
		return models.Order{}, err
	}

	order.Items = make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		item := models.NewOrderItem(order.ID, products[l.ProductID], l.Quantity)
		if err := s.repos.OrderItems.Create(ctx, &item); err != nil {
			s.discard(ctx, order)
			return models.Order{}, err
		}
		order.Items = append(order.Items, item)
	}

	logger.WithCtx(ctx).Info("order created", "order_id", order.ID, "user_id", user.ID, "total", order.TotalAmount)
	s.publish(order, "")
	return order, nil
}

// discard removes a half-written order and its items. Failures are logged:
// the caller is already returning the original error.
func (s *OrderService) discard(ctx context.Context, order models.Order) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx)
	for _, item := range order.Items {
		if _, err := s.repos.OrderItems.Delete(ctx, item.ID); err != nil {
			log.Error("order rollback: delete item failed", "order_id", order.ID, "item_id", item.ID, "error", err)
		}
	}
	if _, err := s.repos.Orders.Delete(ctx, order.ID); err != nil {
		log.Error("order rollback: delete order failed", "order_id", order.ID, "error", err)
	}
}

// ConfirmPayment moves a pending order to paid and takes its items out of
// stock. Stock is checked again under the product locks; a shortfall leaves
// the order pending and the catalog untouched.
func (s *OrderService) ConfirmPayment(ctx context.Context, id int) (models.Order, error) {
	order, release, err := s.begin(ctx, id, models.StatusPaid)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	items, err := s.repos.OrderItems.ForOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	order.Items = items

	err = s.withProducts(ctx, items, func(products map[int]models.Product, qty map[int]int) error {
		if err := checkStock(products, qty); err != nil {
			return err
		}
		restore, err := s.adjustStock(ctx, products, qty, -1)
		if err != nil {
			return err
		}
		prev := order.Status
		order.Status = models.StatusPaid
		if err := s.repos.Orders.Save(ctx, &order); err != nil {
			order.Status = prev
			restore()
			return err
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.finish(ctx, order, models.StatusPending)
	return order, nil
}

// Fulfil marks a pending or paid order completed. Stock is not touched.
func (s *OrderService) Fulfil(ctx context.Context, id int) (models.Order, error) {
	order, release, err := s.begin(ctx, id, models.StatusCompleted)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	from := order.Status
	now := s.now()
	order.Status = models.StatusCompleted
	order.CompletedAt = &now
	if err := s.repos.Orders.Save(ctx, &order); err != nil {
		return models.Order{}, err
	}

	s.finish(ctx, order, from)
	return order, nil
}

// Decline cancels a pending or paid order. A paid order's items go back
// into stock only when restock-on-decline is enabled.
func (s *OrderService) Decline(ctx context.Context, id int) (models.Order, error) {
	order, release, err := s.begin(ctx, id, models.StatusCancelled)
	if err != nil {
		return models.Order{}, err
	}
	defer release()

	from := order.Status
	save := func(restore func()) error {
		now := s.now()
		order.Status = models.StatusCancelled
		order.CompletedAt = &now
		if err := s.repos.Orders.Save(ctx, &order); err != nil {
			order.Status, order.CompletedAt = from, nil
			restore()
			return err
		}
		return nil
	}

	if s.restockOnDecline && from == models.StatusPaid {
		items, err := s.repos.OrderItems.ForOrder(ctx, id)
		if err != nil {
			return models.Order{}, err
		}
		order.Items = items
		err = s.withProducts(ctx, items, func(products map[int]models.Product, qty map[int]int) error {
			undo, err := s.adjustStock(ctx, products, qty, +1)
			if err != nil {
				return err
			}
			return save(undo)
		})
		if err != nil {
			return models.Order{}, err
		}
	} else if err := save(func() {}); err != nil {
		return models.Order{}, err
	}

	s.finish(ctx, order, from)
	return order, nil
}

// begin locks the order, loads it and checks that it may move to next. The
// returned release must be called once the transition is persisted.
func (s *OrderService) begin(ctx context.Context, id int, next models.OrderStatus) (models.Order, lock.Release, error) {
	release, err := s.locker.Acquire(ctx, lock.Key("order", id))
	if err != nil {
		return models.Order{}, nil, err
	}

	order, err := s.repos.Orders.FindByID(ctx, id)
	if err != nil {
		release()
		if errors.Is(err, recordstore.ErrNotFound) {
			return models.Order{}, nil, fmt.Errorf("order #%d: %w", id, ErrOrderNotFound)
		}
		return models.Order{}, nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		release()
		return models.Order{}, nil, &InvalidTransitionError{OrderID: id, From: order.Status, To: next}
	}
	return order, release, nil
}

// withProducts locks and re-reads every product referenced by items, then
// runs fn with the fresh products and the per-product quantities.
func (s *OrderService) withProducts(ctx context.Context, items []models.OrderItem, fn func(map[int]models.Product, map[int]int) error) error {
	qty := make(map[int]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	ids := sortedIDs(qty)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = lock.Key("product", id)
	}
	release, err := lock.AcquireAll(ctx, s.locker, keys...)
	if err != nil {
		return err
	}
	defer release()

	products, err := s.loadProducts(ctx, ids)
	if err != nil {
		return err
	}
	return fn(products, qty)
}

// adjustStock adds sign*qty to every product and saves it. If a save fails
// the products already saved are put back. The returned func undoes the
// whole adjustment.
func (s *OrderService) adjustStock(ctx context.Context, products map[int]models.Product, qty map[int]int, sign int) (func(), error) {
	var saved []models.Product
	undo := func() {
		uctx := context.WithoutCancel(ctx)
		for _, p := range saved {
			p.Stock -= sign * qty[p.ID]
			if err := s.repos.Products.Save(uctx, &p); err != nil {
				logger.WithCtx(ctx).Error("stock rollback failed", "product_id", p.ID, "error", err)
			}
		}
	}

	for _, id := range sortedIDs(qty) {
		p := products[id]
		p.Stock += sign * qty[id]
		if err := s.repos.Products.Save(ctx, &p); err != nil {
			undo()
			return nil, err
		}
		saved = append(saved, p)
	}
	return undo, nil
}

// finish runs the side effects of a persisted transition. None of them can
// fail the transition.
func (s *OrderService) finish(ctx context.Context, order models.Order, from models.OrderStatus) {
	logger.WithCtx(ctx).Info("order status changed", "order_id", order.ID, "from", from, "to", order.Status)
	metrics.RecordTransition(string(order.Status))
	s.notifyOwner(ctx, order)
	s.publish(order, from)
}

func (s *OrderService) publish(order models.Order, from models.OrderStatus) {
	s.bus.FireAsync(event.OrderEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		From:    string(from),
		To:      string(order.Status),
		Total:   order.TotalAmount,
		At:      s.now(),
	})
}

func (s *OrderService) notifyOwner(ctx context.Context, order models.Order) {
	log := logger.WithCtx(ctx).With("order_id", order.ID, "user_id", order.UserID)
	text := StatusMessage(order)
	if s.sink == nil || text == "" {
		return
	}

	owner, err := s.repos.Users.FindByID(ctx, order.UserID)
	if err != nil || owner.TelegramID == 0 {
		log.Warn("order owner has no telegram id, notification skipped", "error", err)
		metrics.RecordNotification("skipped")
		return
	}

	if err := s.sink.Notify(ctx, owner.TelegramID, text); err != nil {
		log.Warn("could not notify customer", "error", err)
		metrics.RecordNotification("failed")
		return
	}
	metrics.RecordNotification("sent")
}

// StatusMessage is the customer-facing text for an order's current status.
func StatusMessage(order models.Order) string {
	switch order.Status {
	case models.StatusPaid:
		return fmt.Sprintf("💵 Your order #%d is paid and being prepared.", order.ID)
	case models.StatusCompleted:
		return fmt.Sprintf("✅ Your order #%d is ready for collection!", order.ID)
	case models.StatusCancelled:
		return fmt.Sprintf("❌ Your order #%d was declined. Please contact the store.", order.ID)
	}
	return ""
}

// PendingQueue lists the orders awaiting staff, pending and paid, oldest
// first, with their items.
func (s *OrderService) PendingQueue(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repos.Orders.ByStatus(ctx, models.StatusPending, models.StatusPaid)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

// CompletedReport totals the completed orders.
func (s *OrderService) CompletedReport(ctx context.Context) (SalesReport, error) {
	orders, err := s.repos.Orders.ByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return SalesReport{}, err
	}

	var r SalesReport
	for _, o := range orders {
		r.Count++
		r.Revenue += o.TotalAmount
	}
	r.Revenue = models.RoundMoney(r.Revenue)
	if r.Count > 0 {
		r.Average = models.RoundMoney(r.Revenue / float64(r.Count))
	}
	return r, nil
}

// Order returns one order with its items.
func (s *OrderService) Order(ctx context.Context, id int) (models.Order, error) {
	order, err := s.repos.Orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return models.Order{}, fmt.Errorf("order #%d: %w", id, ErrOrderNotFound)
		}
		return models.Order{}, err
	}
	if order.Items, err = s.repos.OrderItems.ForOrder(ctx, id); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// OrdersForUser returns a customer's orders with their items, oldest first.
func (s *OrderService) OrdersForUser(ctx context.Context, userID int) ([]models.Order, error) {
	orders, err := s.repos.Orders.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

func (s *OrderService) attachItems(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	items, err := s.repos.OrderItems.All(ctx)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int][]models.OrderItem)
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (s *OrderService) loadProducts(ctx context.Context, ids []int) (map[int]models.Product, error) {
	products := make(map[int]models.Product, len(ids))
	for _, id := range ids {
		p, err := s.repos.Products.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, recordstore.ErrNotFound) {
				return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
			}
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}

// checkStock fails on the first product, by id, that cannot cover its
// requested quantity.
func checkStock(products map[int]models.Product, requested map[int]int) error {
	for _, id := range sortedIDs(requested) {
		p := products[id]
		if p.Stock < requested[id] {
			return &InsufficientStockError{
				ProductID:   id,
				ProductName: p.Name,
				Requested:   requested[id],
				Available:   p.Stock,
			}
		}
	}
	return nil
}

func sortedIDs(m map[int]int) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

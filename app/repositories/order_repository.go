package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// OrderRepository handles storage for Order.
type OrderRepository struct {
	store *recordstore.Store
}

func NewOrderRepository(store *recordstore.Store) *OrderRepository {
	return &OrderRepository{store: store}
}

// FindByID looks an order up by id. Items are not loaded.
func (r *OrderRepository) FindByID(ctx context.Context, id int) (models.Order, error) {
	rec, _, err := r.store.FindOne(ctx, models.OrdersCollection, "id", strconv.Itoa(id))
	if err != nil {
		return models.Order{}, err
	}
	return models.OrderFromRecord(rec), nil
}

// Save inserts or rewrites o.
func (r *OrderRepository) Save(ctx context.Context, o *models.Order) error {
	if o.ID == 0 && o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	id, err := save(ctx, r.store, models.OrdersCollection, o.ID, o.Record())
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	o.ID = id
	return nil
}

// Delete removes an order row. Only used to undo a half-written order.
func (r *OrderRepository) Delete(ctx context.Context, id int) (bool, error) {
	return r.store.Delete(ctx, models.OrdersCollection, id)
}

// All returns every order in creation order.
func (r *OrderRepository) All(ctx context.Context) ([]models.Order, error) {
	return r.filter(ctx, func(models.Order) bool { return true })
}

// ByStatus returns the orders in any of the given statuses, in creation
// order.
func (r *OrderRepository) ByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	want := make(map[models.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	return r.filter(ctx, func(o models.Order) bool { return want[o.Status] })
}

// ForUser returns one customer's orders in creation order.
func (r *OrderRepository) ForUser(ctx context.Context, userID int) ([]models.Order, error) {
	return r.filter(ctx, func(o models.Order) bool { return o.UserID == userID })
}

func (r *OrderRepository) filter(ctx context.Context, keep func(models.Order) bool) ([]models.Order, error) {
	recs, err := r.store.GetAll(ctx, models.OrdersCollection)
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(recs))
	for _, rec := range recs {
		if o := models.OrderFromRecord(rec); keep(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

// OrderItemRepository handles storage for OrderItem. Items are written once
// and never updated.
type OrderItemRepository struct {
	store *recordstore.Store
}

func NewOrderItemRepository(store *recordstore.Store) *OrderItemRepository {
	return &OrderItemRepository{store: store}
}

// Create persists a new item and sets its id.
func (r *OrderItemRepository) Create(ctx context.Context, item *models.OrderItem) error {
	stored, err := r.store.Add(ctx, models.OrderItemsCollection, item.Record())
	if err != nil {
		return fmt.Errorf("save order item: %w", err)
	}
	item.ID = stored.ID()
	return nil
}

// Delete removes an item row. Only used to undo a half-written order.
func (r *OrderItemRepository) Delete(ctx context.Context, id int) (bool, error) {
	return r.store.Delete(ctx, models.OrderItemsCollection, id)
}

// ForOrder returns the items of one order in creation order.
func (r *OrderItemRepository) ForOrder(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	recs, err := r.store.GetAll(ctx, models.OrderItemsCollection)
	if err != nil {
		return nil, err
	}
	var out []models.OrderItem
	for _, rec := range recs {
		if item := models.OrderItemFromRecord(rec); item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

// All returns every item in creation order.
func (r *OrderItemRepository) All(ctx context.Context) ([]models.OrderItem, error) {
	recs, err := r.store.GetAll(ctx, models.OrderItemsCollection)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, models.OrderItemFromRecord(rec))
	}
	return out, nil
}

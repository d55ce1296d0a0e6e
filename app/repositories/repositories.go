// Package repositories are the typed views over the record store. They are
// the only code outside pkg/recordstore that knows collection names and
// column layouts.
package repositories

import (
	"context"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/pkg/cache"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// Set bundles the four repositories over one store.
type Set struct {
	Users      *UserRepository
	Products   *ProductRepository
	Orders     *OrderRepository
	OrderItems *OrderItemRepository
}

// New builds every repository. catalog may be nil.
func New(store *recordstore.Store, catalog *cache.Cache) *Set {
	return &Set{
		Users:      NewUserRepository(store),
		Products:   NewProductRepository(store, catalog),
		Orders:     NewOrderRepository(store),
		OrderItems: NewOrderItemRepository(store),
	}
}

// Init creates the collections and their header rows where missing.
func (s *Set) Init(ctx context.Context) error {
	for _, c := range []struct {
		name   string
		fields []string
	}{
		{models.UsersCollection, models.UserFields},
		{models.ProductsCollection, models.ProductFields},
		{models.OrdersCollection, models.OrderFields},
		{models.OrderItemsCollection, models.OrderItemFields},
	} {
		if err := s.Users.store.EnsureCollection(ctx, c.name, c.fields); err != nil {
			return err
		}
	}
	return nil
}

// save adds rec when id is 0 and updates it otherwise, returning the id.
func save(ctx context.Context, store *recordstore.Store, collection string, id int, rec recordstore.Record) (int, error) {
	if id == 0 {
		stored, err := store.Add(ctx, collection, rec)
		if err != nil {
			return 0, err
		}
		return stored.ID(), nil
	}

	found, err := store.Update(ctx, collection, id, rec)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, notFound(collection, id)
	}
	return id, nil
}

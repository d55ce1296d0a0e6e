package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/pkg/cache"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

const catalogCacheKey = "products:all"

// ProductRepository handles storage for Product. The full catalog listing is
// cached; single-product reads always hit the store because the order engine
// checks stock with them.
type ProductRepository struct {
	store *recordstore.Store
	cache *cache.Cache
}

func NewProductRepository(store *recordstore.Store, c *cache.Cache) *ProductRepository {
	return &ProductRepository{store: store, cache: c}
}

// FindByID reads a product straight from the store.
func (r *ProductRepository) FindByID(ctx context.Context, id int) (models.Product, error) {
	rec, _, err := r.store.FindOne(ctx, models.ProductsCollection, "id", strconv.Itoa(id))
	if err != nil {
		return models.Product{}, err
	}
	return models.ProductFromRecord(rec), nil
}

// All lists the catalog in row order, optionally only available products.
func (r *ProductRepository) All(ctx context.Context, availableOnly bool) ([]models.Product, error) {
	var products []models.Product
	if !r.cache.Get(ctx, catalogCacheKey, &products) {
		recs, err := r.store.GetAll(ctx, models.ProductsCollection)
		if err != nil {
			return nil, err
		}
		products = make([]models.Product, 0, len(recs))
		for _, rec := range recs {
			products = append(products, models.ProductFromRecord(rec))
		}
		if err := r.cache.Set(ctx, catalogCacheKey, products); err != nil {
			logger.WithCtx(ctx).Warn("products: cache set failed", "error", err)
		}
	}

	if !availableOnly {
		return products, nil
	}
	out := products[:0:0]
	for _, p := range products {
		if p.IsAvailable {
			out = append(out, p)
		}
	}
	return out, nil
}

// Save inserts or rewrites p, stamping updated_at, and drops the cached
// catalog. created_at is stamped only on insert.
func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.ID == 0 && p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	id, err := save(ctx, r.store, models.ProductsCollection, p.ID, p.Record())
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	p.ID = id

	if err := r.cache.Forget(ctx, catalogCacheKey); err != nil {
		logger.WithCtx(ctx).Warn("products: cache invalidation failed", "error", err)
	}
	return nil
}

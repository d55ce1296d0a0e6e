package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

var (
	ErrNegativePrice = errors.New("Price cannot be negative")
	ErrInvalidPrice  = errors.New("Invalid price format")
	ErrNegativeStock = errors.New("Stock cannot be negative")
	ErrInvalidStock  = errors.New("Invalid stock format")
)

// ValidatePrice parses a price typed by staff.
func ValidatePrice(s string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	if price < 0 {
		return 0, ErrNegativePrice
	}
	return price, nil
}

// ValidateStock parses a stock count typed by staff.
func ValidateStock(s string) (int, error) {
	stock, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidStock
	}
	if stock < 0 {
		return 0, ErrNegativeStock
	}
	return stock, nil
}

// CreateProductRequest is the input for a new catalog entry.
type CreateProductRequest struct {
	Name        string  `json:"name"        validate:"required,max=255"`
	Description string  `json:"description" validate:"max=1000"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Stock       int     `json:"stock"       validate:"gte=0"`
	IsAvailable *bool   `json:"is_available"`
}

// UpdateProductRequest changes only the fields that are set.
type UpdateProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock"       validate:"omitempty,gte=0"`
	IsAvailable *bool    `json:"is_available"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		parts = append(parts, f+" "+rule)
	}
	return "invalid product: " + strings.Join(parts, ", ")
}

// CatalogService manages products. Writes that touch stock hold the same
// "product:<id>" lock the order engine uses.
type CatalogService struct {
	products *repositories.ProductRepository
	locker   lock.Locker
	validate *validator.Validate
}

func NewCatalogService(products *repositories.ProductRepository, locker lock.Locker) *CatalogService {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	return &CatalogService{products: products, locker: locker, validate: validator.New()}
}

// List returns the catalog, optionally only what customers may buy.
func (s *CatalogService) List(ctx context.Context, availableOnly bool) ([]models.Product, error) {
	return s.products.All(ctx, availableOnly)
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id int) (models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return models.Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, err
}

// Add validates req and stores a new product. Products are available unless
// req says otherwise.
func (s *CatalogService) Add(ctx context.Context, req CreateProductRequest) (models.Product, error) {
	if err := s.check(req); err != nil {
		return models.Product{}, err
	}
	p := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       models.RoundMoney(req.Price),
		Stock:       req.Stock,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
	}
	if err := s.products.Save(ctx, &p); err != nil {
		return models.Product{}, err
	}
	logger.WithCtx(ctx).Info("product added", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies req to product id.
func (s *CatalogService) Update(ctx context.Context, id int, req UpdateProductRequest) (models.Product, error) {
	if err := s.check(req); err != nil {
		return models.Product{}, err
	}
	return s.modify(ctx, id, func(p *models.Product) {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			p.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			p.Price = models.RoundMoney(*req.Price)
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
		}
		if req.IsAvailable != nil {
			p.IsAvailable = *req.IsAvailable
		}
	})
}

// SetStock overwrites the stock count.
func (s *CatalogService) SetStock(ctx context.Context, id, stock int) (models.Product, error) {
	if stock < 0 {
		return models.Product{}, ErrNegativeStock
	}
	return s.modify(ctx, id, func(p *models.Product) { p.Stock = stock })
}

// SetAvailability shows or hides a product from customers.
func (s *CatalogService) SetAvailability(ctx context.Context, id int, available bool) (models.Product, error) {
	return s.modify(ctx, id, func(p *models.Product) { p.IsAvailable = available })
}

// ToggleAvailability flips is_available.
func (s *CatalogService) ToggleAvailability(ctx context.Context, id int) (models.Product, error) {
	return s.modify(ctx, id, func(p *models.Product) { p.IsAvailable = !p.IsAvailable })
}

func (s *CatalogService) modify(ctx context.Context, id int, change func(*models.Product)) (models.Product, error) {
	release, err := s.locker.Acquire(ctx, lock.Key("product", id))
	if err != nil {
		return models.Product{}, err
	}
	defer release()

	p, err := s.Get(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	change(&p)
	if err := s.products.Save(ctx, &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *CatalogService) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}

package models

import (
	"strings"
	"time"

	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
)

// ProductsCollection is the catalog.
const ProductsCollection = "Products"

// ProductFields is the persisted column order.
var ProductFields = []string{"id", "name", "description", "price", "stock", "is_available", "created_at", "updated_at"}

// Product is a catalog entry. Stock is decremented when an order's payment
// is confirmed.
type Product struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"        validate:"required,max=255"`
	Description string    `json:"description" validate:"max=1000"`
	Price       float64   `json:"price"       validate:"gte=0"`
	Stock       int       `json:"stock"       validate:"gte=0"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductFromRecord maps a stored row onto a Product. An empty is_available
// cell reads as available.
func ProductFromRecord(r recordstore.Record) Product {
	available := true
	if v := strings.TrimSpace(r["is_available"]); v != "" {
		available = toBool(v)
	}
	return Product{
		ID:          toInt(r["id"]),
		Name:        r["name"],
		Description: r["description"],
		Price:       toFloat(r["price"]),
		Stock:       toInt(r["stock"]),
		IsAvailable: available,
		CreatedAt:   toTimeOrZero(r["created_at"]),
		UpdatedAt:   toTimeOrZero(r["updated_at"]),
	}
}

// Record maps p back onto a row. updated_at is stamped by the repository.
func (p Product) Record() recordstore.Record {
	r := recordstore.Record{
		"name":         p.Name,
		"description":  p.Description,
		"price":        fmtFloat(p.Price),
		"stock":        fmtInt(p.Stock),
		"is_available": fmtBool(p.IsAvailable),
		"created_at":   fmtTime(p.CreatedAt),
		"updated_at":   fmtTime(p.UpdatedAt),
	}
	if p.ID != 0 {
		r["id"] = fmtInt(p.ID)
	}
	return r
}

// InStock reports whether qty units can be sold right now.
func (p Product) InStock(qty int) bool {
	return p.IsAvailable && p.Stock >= qty
}

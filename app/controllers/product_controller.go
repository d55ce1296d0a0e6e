package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/bind"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

// ProductController exposes the catalog.
type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index handles GET /api/products[?available=true].
func (c *ProductController) Index(w http.ResponseWriter, r *http.Request) {
	products, err := c.catalog.List(r.Context(), r.URL.Query().Get("available") == "true")
	if err != nil {
		fail(w, r, err)
		return
	}
	response.List(w, products)
}

// Show handles GET /api/products/{id}.
func (c *ProductController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := c.catalog.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// Store handles POST /api/products.
func (c *ProductController) Store(w http.ResponseWriter, r *http.Request) {
	var req services.CreateProductRequest
	if err := bind.JSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	p, err := c.catalog.Add(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, p)
}

// Update handles PATCH /api/products/{id}.
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if err := bind.JSON(w, r, &req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	p, err := c.catalog.Update(r.Context(), id, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

package controllers

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

// OrderController lets staff work the order queue over HTTP.
type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Queue handles GET /api/orders/queue.
func (c *OrderController) Queue(w http.ResponseWriter, r *http.Request) {
	orders, err := c.orders.PendingQueue(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.List(w, orders)
}

// Show handles GET /api/orders/{id}.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	order, err := c.orders.Order(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

// Paid handles POST /api/orders/{id}/paid.
func (c *OrderController) Paid(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.orders.ConfirmPayment)
}

// Complete handles POST /api/orders/{id}/complete.
func (c *OrderController) Complete(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.orders.Fulfil)
}

// Decline handles POST /api/orders/{id}/decline.
func (c *OrderController) Decline(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.orders.Decline)
}

func (c *OrderController) transition(w http.ResponseWriter, r *http.Request, move func(context.Context, int) (models.Order, error)) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	order, err := move(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

// Report handles GET /api/reports/sales.
func (c *OrderController) Report(w http.ResponseWriter, r *http.Request) {
	report, err := c.orders.CompletedReport(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, report)
}

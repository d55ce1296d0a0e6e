// Package routes mounts the ops API on a chi router.
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gql "github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/beanleaf/app/controllers"
	"github.com/shashiranjanraj/beanleaf/app/services"
	pkggraphql "github.com/shashiranjanraj/beanleaf/pkg/graphql"
	"github.com/shashiranjanraj/beanleaf/pkg/metrics"
	"github.com/shashiranjanraj/beanleaf/pkg/middleware"
	"github.com/shashiranjanraj/beanleaf/pkg/reqid"
	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

// Deps is everything the API needs from the kernel. Hub, Stream and Schema
// are optional; their routes are skipped when nil.
type Deps struct {
	Catalog    *services.CatalogService
	Orders     *services.OrderService
	Health     func(ctx context.Context) error
	APIKeyHash string
	Hub        http.Handler
	Stream     http.Handler
	Schema     *gql.Schema
}

// API builds the ops router.
func API(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware(), middleware.Recovery, reqid.Middleware(), middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req.Context()); err != nil {
				response.Unavailable(w, err.Error())
				return
			}
		}
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	authController := controllers.NewAuthController(d.APIKeyHash)
	products := controllers.NewProductController(d.Catalog)
	orders := controllers.NewOrderController(d.Orders)

	r.Route("/api", func(api chi.Router) {
		api.With(middleware.NewRateLimiter(5, time.Minute).Middleware).Post("/token", authController.Token)

		api.Group(func(staff chi.Router) {
			staff.Use(middleware.RequireStaff)

			staff.Get("/products", products.Index)
			staff.Post("/products", products.Store)
			staff.Get("/products/{id}", products.Show)
			staff.Patch("/products/{id}", products.Update)

			staff.Get("/orders/queue", orders.Queue)
			if d.Stream != nil {
				staff.Get("/orders/stream", d.Stream.ServeHTTP)
			}
			staff.Get("/orders/{id}", orders.Show)
			staff.Post("/orders/{id}/paid", orders.Paid)
			staff.Post("/orders/{id}/complete", orders.Complete)
			staff.Post("/orders/{id}/decline", orders.Decline)

			staff.Get("/reports/sales", orders.Report)
		})
	})

	if d.Hub != nil {
		r.With(middleware.RequireStaff).Handle("/ws/orders", d.Hub)
	}
	if d.Schema != nil {
		r.With(middleware.RequireStaff).Handle("/graphql", pkggraphql.Handler(*d.Schema))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found")
	})
	return r
}

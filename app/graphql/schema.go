// Package graphql exposes the catalog and the order queue as a GraphQL
// schema for the staff dashboard.
package graphql

import (
	"time"

	gql "github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/services"
	pkggraphql "github.com/shashiranjanraj/beanleaf/pkg/graphql"
)

var productType = gql.NewObject(gql.ObjectConfig{
	Name: "Product",
	Fields: gql.Fields{
		"id":           &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"name":         &gql.Field{Type: gql.NewNonNull(gql.String)},
		"description":  &gql.Field{Type: gql.String},
		"price":        &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"stock":        &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"is_available": &gql.Field{Type: gql.NewNonNull(gql.Boolean)},
	},
})

var orderItemType = gql.NewObject(gql.ObjectConfig{
	Name: "OrderItem",
	Fields: gql.Fields{
		"product_id":   &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"product_name": &gql.Field{Type: gql.NewNonNull(gql.String)},
		"quantity":     &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"price":        &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"subtotal":     &gql.Field{Type: gql.NewNonNull(gql.Float)},
	},
})

var orderType = gql.NewObject(gql.ObjectConfig{
	Name: "Order",
	Fields: gql.Fields{
		"id":           &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"user_id":      &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"total_amount": &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"status": &gql.Field{
			Type: gql.NewNonNull(gql.String),
			Resolve: func(p gql.ResolveParams) (interface{}, error) {
				return string(p.Source.(models.Order).Status), nil
			},
		},
		"created_at": &gql.Field{
			Type: gql.String,
			Resolve: func(p gql.ResolveParams) (interface{}, error) {
				return p.Source.(models.Order).CreatedAt.Format(time.RFC3339), nil
			},
		},
		"completed_at": &gql.Field{
			Type: gql.String,
			Resolve: func(p gql.ResolveParams) (interface{}, error) {
				at := p.Source.(models.Order).CompletedAt
				if at == nil {
					return nil, nil
				}
				return at.Format(time.RFC3339), nil
			},
		},
		"items": &gql.Field{Type: gql.NewList(orderItemType)},
	},
})

var reportType = gql.NewObject(gql.ObjectConfig{
	Name: "SalesReport",
	Fields: gql.Fields{
		"count":   &gql.Field{Type: gql.NewNonNull(gql.Int)},
		"revenue": &gql.Field{Type: gql.NewNonNull(gql.Float)},
		"average": &gql.Field{Type: gql.NewNonNull(gql.Float)},
	},
})

func idArg() gql.FieldConfigArgument {
	return gql.FieldConfigArgument{"id": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)}}
}

// NewSchema wires the resolvers to the catalog and order services.
func NewSchema(catalog *services.CatalogService, orders *services.OrderService) (gql.Schema, error) {
	query := gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"products": &gql.Field{
				Type: gql.NewList(productType),
				Args: gql.FieldConfigArgument{
					"available": &gql.ArgumentConfig{Type: gql.Boolean, DefaultValue: false},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					available, _ := p.Args["available"].(bool)
					return catalog.List(p.Context, available)
				},
			},
			"product": &gql.Field{
				Type: productType,
				Args: idArg(),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return catalog.Get(p.Context, p.Args["id"].(int))
				},
			},
			"queue": &gql.Field{
				Type: gql.NewList(orderType),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return orders.PendingQueue(p.Context)
				},
			},
			"order": &gql.Field{
				Type: orderType,
				Args: idArg(),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return orders.Order(p.Context, p.Args["id"].(int))
				},
			},
			"salesReport": &gql.Field{
				Type: reportType,
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return orders.CompletedReport(p.Context)
				},
			},
		},
	})

	transition := func(move func(p gql.ResolveParams, id int) (models.Order, error)) *gql.Field {
		return &gql.Field{
			Type: orderType,
			Args: idArg(),
			Resolve: func(p gql.ResolveParams) (interface{}, error) {
				return move(p, p.Args["id"].(int))
			},
		}
	}

	mutation := gql.NewObject(gql.ObjectConfig{
		Name: "Mutation",
		Fields: gql.Fields{
			"confirmPayment": transition(func(p gql.ResolveParams, id int) (models.Order, error) {
				return orders.ConfirmPayment(p.Context, id)
			}),
			"fulfil": transition(func(p gql.ResolveParams, id int) (models.Order, error) {
				return orders.Fulfil(p.Context, id)
			}),
			"decline": transition(func(p gql.ResolveParams, id int) (models.Order, error) {
				return orders.Decline(p.Context, id)
			}),
			"setStock": &gql.Field{
				Type: productType,
				Args: gql.FieldConfigArgument{
					"id":    &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
					"stock": &gql.ArgumentConfig{Type: gql.NewNonNull(gql.Int)},
				},
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return catalog.SetStock(p.Context, p.Args["id"].(int), p.Args["stock"].(int))
				},
			},
			"toggleAvailability": &gql.Field{
				Type: productType,
				Args: idArg(),
				Resolve: func(p gql.ResolveParams) (interface{}, error) {
					return catalog.ToggleAvailability(p.Context, p.Args["id"].(int))
				},
			},
		},
	})

	return pkggraphql.NewSchema(query, mutation)
}

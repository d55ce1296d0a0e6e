package graphql_test

import (
	"context"
	"testing"

	gql "github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgraphql "github.com/shashiranjanraj/beanleaf/app/graphql"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

type fixture struct {
	schema gql.Schema
	repos  *repositories.Set
	orders *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	locker := lock.NewMemoryLocker()
	repos := repositories.New(recordstore.New(tabular.NewMemoryBackend(), locker, logger.Discard()), nil)
	require.NoError(t, repos.Init(context.Background()))

	orders := services.NewOrderService(repos, locker, notification.LogSink{Log: logger.Discard()})
	schema, err := appgraphql.NewSchema(services.NewCatalogService(repos.Products, locker), orders)
	require.NoError(t, err)
	return &fixture{schema: schema, repos: repos, orders: orders}
}

func (f *fixture) do(t *testing.T, query string) map[string]interface{} {
	t.Helper()
	res := gql.Do(gql.Params{Schema: f.schema, RequestString: query, Context: context.Background()})
	require.False(t, res.HasErrors(), "%v", res.Errors)
	return res.Data.(map[string]interface{})
}

func TestSchema_QueueAndTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	latte := models.Product{Name: "Latte", Price: 3.5, Stock: 5, IsAvailable: true}
	require.NoError(t, f.repos.Products.Save(ctx, &latte))
	user := models.User{TelegramID: 5001, Username: "ana"}
	require.NoError(t, f.repos.Users.Save(ctx, &user))
	order, err := f.orders.Create(ctx, user, []models.OrderLine{{ProductID: latte.ID, Quantity: 2}})
	require.NoError(t, err)

	data := f.do(t, `{ queue { id status total_amount items { product_name quantity } } }`)
	queue := data["queue"].([]interface{})
	require.Len(t, queue, 1)
	first := queue[0].(map[string]interface{})
	assert.Equal(t, order.ID, first["id"])
	assert.Equal(t, "pending", first["status"])
	assert.Equal(t, 7.0, first["total_amount"])

	data = f.do(t, `mutation { confirmPayment(id: 1) { status } }`)
	assert.Equal(t, "paid", data["confirmPayment"].(map[string]interface{})["status"])

	data = f.do(t, `mutation { fulfil(id: 1) { status completed_at } }`)
	done := data["fulfil"].(map[string]interface{})
	assert.Equal(t, "completed", done["status"])
	assert.NotNil(t, done["completed_at"])

	data = f.do(t, `{ salesReport { count revenue average } products { name stock } }`)
	assert.Equal(t, map[string]interface{}{"count": 1, "revenue": 7.0, "average": 7.0}, data["salesReport"])
	products := data["products"].([]interface{})
	assert.Equal(t, 3, products[0].(map[string]interface{})["stock"])
}

func TestSchema_ResolverErrors(t *testing.T) {
	f := newFixture(t)

	res := gql.Do(gql.Params{Schema: f.schema, RequestString: `mutation { decline(id: 42) { status } }`, Context: context.Background()})
	require.True(t, res.HasErrors())
	assert.Contains(t, res.Errors[0].Message, "order not found")
}

func TestSchema_Catalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	mocha := models.Product{Name: "Mocha", Price: 4, Stock: 1, IsAvailable: true}
	require.NoError(t, f.repos.Products.Save(ctx, &mocha))

	data := f.do(t, `mutation { setStock(id: 1, stock: 12) { stock } }`)
	assert.Equal(t, 12, data["setStock"].(map[string]interface{})["stock"])

	data = f.do(t, `mutation { toggleAvailability(id: 1) { is_available } }`)
	assert.Equal(t, false, data["toggleAvailability"].(map[string]interface{})["is_available"])

	data = f.do(t, `{ products(available: true) { id } }`)
	assert.Empty(t, data["products"])
}

package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgraphql "github.com/shashiranjanraj/beanleaf/app/graphql"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/repositories"
	"github.com/shashiranjanraj/beanleaf/app/routes"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/pkg/auth"
	"github.com/shashiranjanraj/beanleaf/pkg/lock"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/notification"
	"github.com/shashiranjanraj/beanleaf/pkg/recordstore"
	"github.com/shashiranjanraj/beanleaf/pkg/tabular"
)

type api struct {
	handler http.Handler
	repos   *repositories.Set
	orders  *services.OrderService
	token   string
}

func newAPI(t *testing.T, health func(context.Context) error) *api {
	t.Helper()
	t.Setenv("JWT_SECRET", "routes-secret")

	locker := lock.NewMemoryLocker()
	repos := repositories.New(recordstore.New(tabular.NewMemoryBackend(), locker, logger.Discard()), nil)
	require.NoError(t, repos.Init(context.Background()))

	catalog := services.NewCatalogService(repos.Products, locker)
	orders := services.NewOrderService(repos, locker, notification.LogSink{Log: logger.Discard()})
	schema, err := appgraphql.NewSchema(catalog, orders)
	require.NoError(t, err)

	hash, err := auth.HashAPIKey("open-sesame")
	require.NoError(t, err)

	return &api{
		handler: routes.API(routes.Deps{
			Catalog:    catalog,
			Orders:     orders,
			Health:     health,
			APIKeyHash: hash,
			Schema:     &schema,
		}),
		repos:  repos,
		orders: orders,
	}
}

func (a *api) call(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (a *api) login(t *testing.T) {
	t.Helper()
	code, out := a.call(t, http.MethodPost, "/api/token", `{"api_key":"open-sesame"}`)
	require.Equal(t, http.StatusOK, code)
	a.token = out["data"].(map[string]any)["token"].(string)
	require.NotEmpty(t, a.token)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t, nil)
	code, out := a.call(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["data"].(map[string]any)["status"])

	down := newAPI(t, func(context.Context) error { return errors.New("sheet offline") })
	code, _ = down.call(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestToken(t *testing.T) {
	a := newAPI(t, nil)

	code, _ := a.call(t, http.MethodPost, "/api/token", `{"api_key":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.call(t, http.MethodPost, "/api/token", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.call(t, http.MethodGet, "/api/orders/queue", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	a.login(t)
	code, _ = a.call(t, http.MethodGet, "/api/orders/queue", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestProducts(t *testing.T) {
	a := newAPI(t, nil)
	a.login(t)

	code, out := a.call(t, http.MethodPost, "/api/products", `{"name":"Flat White","price":3.8,"stock":6}`)
	require.Equal(t, http.StatusCreated, code)
	id := out["data"].(map[string]any)["id"]
	assert.EqualValues(t, 1, id)

	code, out = a.call(t, http.MethodPost, "/api/products", `{"price":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, out["errors"], "name")

	code, out = a.call(t, http.MethodPatch, "/api/products/1", `{"stock":2,"is_available":false}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, out["data"].(map[string]any)["stock"])

	code, out = a.call(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, out["data"].(map[string]any)["count"])

	code, out = a.call(t, http.MethodGet, "/api/products?available=true", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, out["data"].(map[string]any)["count"])

	code, _ = a.call(t, http.MethodGet, "/api/products/99", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.call(t, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOrderTransitions(t *testing.T) {
	ctx := context.Background()
	a := newAPI(t, nil)
	a.login(t)

	latte := models.Product{Name: "Latte", Price: 3.5, Stock: 1, IsAvailable: true}
	require.NoError(t, a.repos.Products.Save(ctx, &latte))
	user := models.User{TelegramID: 5001}
	require.NoError(t, a.repos.Users.Save(ctx, &user))

	first, err := a.orders.Create(ctx, user, []models.OrderLine{{ProductID: latte.ID, Quantity: 1}})
	require.NoError(t, err)
	second, err := a.orders.Create(ctx, user, []models.OrderLine{{ProductID: latte.ID, Quantity: 1}})
	require.NoError(t, err)

	code, out := a.call(t, http.MethodGet, "/api/orders/queue", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, out["data"].(map[string]any)["count"])

	code, _ = a.call(t, http.MethodPost, "/api/orders/1/paid", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, first.ID)

	// The only unit went to the first order.
	code, _ = a.call(t, http.MethodPost, "/api/orders/2/paid", "")
	assert.Equal(t, http.StatusConflict, code)
	require.Equal(t, 2, second.ID)

	code, out = a.call(t, http.MethodPost, "/api/orders/1/complete", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", out["data"].(map[string]any)["status"])

	code, _ = a.call(t, http.MethodPost, "/api/orders/1/decline", "")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.call(t, http.MethodPost, "/api/orders/2/decline", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.call(t, http.MethodGet, "/api/orders/404", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, out = a.call(t, http.MethodGet, "/api/reports/sales", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"count": 1.0, "revenue": 3.5, "average": 3.5}, out["data"])
}

func TestGraphQLRequiresStaff(t *testing.T) {
	a := newAPI(t, nil)
	code, _ := a.call(t, http.MethodPost, "/graphql", `{"query":"{ queue { id } }"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	a.login(t)
	code, out := a.call(t, http.MethodPost, "/graphql", `{"query":"{ queue { id } }"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, out["data"].(map[string]any)["queue"])
}

func TestUnknownRoute(t *testing.T) {
	a := newAPI(t, nil)
	code, _ := a.call(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
}

package graphql_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkggraphql "github.com/shashiranjanraj/beanleaf/pkg/graphql"
)

func schema(t *testing.T) graphql.Schema {
	t.Helper()
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name, _ := p.Args["name"].(string)
					return "hello " + name, nil
				},
			},
			"broken": &graphql.Field{
				Type: graphql.String,
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return nil, errors.New("nope")
				},
			},
		},
	})
	s, err := pkggraphql.NewSchema(query, nil)
	require.NoError(t, err)
	return s
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHandler_Query(t *testing.T) {
	h := pkggraphql.Handler(schema(t))

	rec, out := post(t, h, `{"query":"query($n: String){ hello(name: $n) }","variables":{"n":"bar"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"hello": "hello bar"}, out["data"])
	assert.Nil(t, out["errors"])
}

func TestHandler_ResolverError(t *testing.T) {
	rec, out := post(t, pkggraphql.Handler(schema(t)), `{"query":"{ broken }"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "nope", errs[0].(map[string]any)["message"])
}

func TestHandler_BadRequests(t *testing.T) {
	h := pkggraphql.Handler(schema(t))

	rec, _ := post(t, h, `{"query":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/response"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestList_NilIsEmptyArray(t *testing.T) {
	rec := httptest.NewRecorder()
	response.List[int](rec, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, []any{}, data["items"])
	assert.Equal(t, float64(0), data["count"])
}

func TestErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	response.Conflict(rec, "order #4 cannot move from completed to paid")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order #4 cannot move from completed to paid", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	response.NotFound(rec, "")
	assert.Equal(t, "Not found", decode(t, rec)["message"])

	rec = httptest.NewRecorder()
	response.ValidationError(rec, map[string]string{"name": "required"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"name": "required"}, decode(t, rec)["errors"])
}

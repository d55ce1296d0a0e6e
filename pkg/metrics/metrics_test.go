package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/beanleaf/pkg/metrics"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/api/orders/{id}", "418"))
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
	}
	after := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/api/orders/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestHelpers(t *testing.T) {
	before := testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("paid"))
	metrics.RecordTransition("paid")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OrderTransitions.WithLabelValues("paid"))-before)

	before = testutil.ToFloat64(metrics.Notifications.WithLabelValues("skipped"))
	metrics.RecordNotification("skipped")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("skipped"))-before)

	err := errors.New("quota")
	metrics.ObserveBackendOp("append_row", time.Now(), &err)
	assert.Positive(t, testutil.CollectAndCount(metrics.BackendOpDuration, "beanleaf_store_backend_op_duration_seconds"))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	metrics.RecordTransition("completed")
	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "beanleaf_orders_transitions_total"))
}

// Package metrics provides Prometheus instrumentation for BeanLeaf.
//
// Besides the ops API's HTTP metrics it tracks the things that matter for a
// POS running over a slow remote backend: backend call latency, order state
// transitions, notification delivery and cache effectiveness.
//
// The ops router mounts it:
//
//	r.Use(metrics.Middleware())
//	r.Get("/metrics", metrics.Handler())
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "beanleaf"

var (
	// BackendOpDuration tracks record store calls against the tabular
	// backend. op is one of ensure, next_id, find, get_all, add, update,
	// delete.
	BackendOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "backend_op_duration_seconds",
		Help:      "Duration of record store backend operations in seconds.",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"op", "result"})

	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order state transitions by target status.",
	}, []string{"to"})

	// Notifications is labelled sent, failed or skipped.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Customer notifications by outcome.",
	}, []string{"status"})

	QueueJobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "jobs_processed_total",
		Help:      "Queue jobs processed by outcome.",
	}, []string{"job_type", "status"})

	QueueJobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "job_duration_seconds",
		Help:      "Duration of queue job processing in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job_type"})

	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Catalog cache hits.",
	}, []string{"driver"})

	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Catalog cache misses.",
	}, []string{"driver"})

	// RequestDuration and RequestTotal cover the ops API, labelled by chi
	// route pattern.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of ops API requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	RequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total ops API requests.",
	}, []string{"method", "path", "status"})
)

// DefaultRegistry holds the runtime collectors and every BeanLeaf metric.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		BackendOpDuration,
		OrderTransitions,
		Notifications,
		QueueJobsProcessed,
		QueueJobDuration,
		CacheHits,
		CacheMisses,
		RequestDuration,
		RequestTotal,
	)
}

// NewCounter creates and registers a counter outside the built-in set.
func NewCounter(namespace, name, help string, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	DefaultRegistry.MustRegister(c)
	return c
}

// NewHistogram creates and registers a histogram outside the built-in set.
func NewHistogram(namespace, name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	DefaultRegistry.MustRegister(h)
	return h
}

// responseRecorder captures the status code.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush and Hijack pass through so SSE and WebSocket handlers work behind
// the wrapper.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (r *responseRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware counts and times every ops API request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			labels := []string{r.Method, routePattern(r), strconv.Itoa(rec.status)}
			RequestDuration.WithLabelValues(labels...).Observe(time.Since(began).Seconds())
			RequestTotal.WithLabelValues(labels...).Inc()
		})
	}
}

// routePattern labels by the matched chi route ("/api/orders/{id}") so order
// ids do not explode the label space. Unrouted requests share one label.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Handler serves DefaultRegistry in text or OpenMetrics format.
func Handler() http.HandlerFunc {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{EnableOpenMetrics: true}).ServeHTTP
}

// ObserveBackendOp records a backend call duration with a simple timer:
//
//	defer metrics.ObserveBackendOp("add", time.Now(), &err)
func ObserveBackendOp(op string, start time.Time, errp *error) {
	result := "ok"
	if errp != nil && *errp != nil {
		result = "error"
	}
	BackendOpDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

// RecordTransition counts an order moving to status to.
func RecordTransition(to string) {
	OrderTransitions.WithLabelValues(to).Inc()
}

// RecordNotification counts one notification outcome.
func RecordNotification(status string) {
	Notifications.WithLabelValues(status).Inc()
}

// RecordQueueJob counts one finished job and its duration.
func RecordQueueJob(jobType, status string, start time.Time) {
	QueueJobsProcessed.WithLabelValues(jobType, status).Inc()
	QueueJobDuration.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
}

// Package metrics collects Prometheus metrics for the store, the activity
// pipeline, the SSE stream and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bestreads"

// Collector implements store.TxObserver, service.Metrics and sse.Observer.
type Collector struct {
	txCommitted prometheus.Counter
	txRetried   prometheus.Counter
	txAborted   prometheus.Counter
	txDuration  prometheus.Histogram

	activities  *prometheus.CounterVec
	transitions prometheus.Counter

	sseClients   prometheus.Gauge
	sseBroadcast prometheus.Counter
	sseDropped   prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		txCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_committed_total",
			Help:      "Committed read-write transactions.",
		}),
		txRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retried_total",
			Help:      "Transactions rerun after a commit conflict.",
		}),
		txAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_aborted_total",
			Help:      "Transactions that conflicted again after their retry.",
		}),
		txDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_duration_seconds",
			Help:      "Time from first attempt to commit.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_recorded_total",
			Help:      "Feed activities written, by type and whether an existing entry was edited.",
		}, []string{"type", "mode"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_transitions_total",
			Help:      "Books moved from Currently Reading to Read by finishing them.",
		}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected activity stream clients.",
		}),
		sseBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_broadcast_total",
			Help:      "Events fanned out to stream clients.",
		}),
		sseDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_dropped_total",
			Help:      "Per-client deliveries skipped because the client buffer was full.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.txCommitted,
		c.txRetried,
		c.txAborted,
		c.txDuration,
		c.activities,
		c.transitions,
		c.sseClients,
		c.sseBroadcast,
		c.sseDropped,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// TxCommitted records a commit and its latency.
func (c *Collector) TxCommitted(d time.Duration) {
	c.txCommitted.Inc()
	c.txDuration.Observe(d.Seconds())
}

// TxRetried records a conflict retry.
func (c *Collector) TxRetried() { c.txRetried.Inc() }

// TxAborted records a transaction that gave up.
func (c *Collector) TxAborted() { c.txAborted.Inc() }

// ActivityRecorded counts an activity write.
func (c *Collector) ActivityRecorded(activityType string, updated bool) {
	mode := "created"
	if updated {
		mode = "updated"
	}
	c.activities.WithLabelValues(activityType, mode).Inc()
}

// CompletionTransition counts a finished book moving to Read.
func (c *Collector) CompletionTransition() { c.transitions.Inc() }

// ClientConnected increments the stream client gauge.
func (c *Collector) ClientConnected() { c.sseClients.Inc() }

// ClientDisconnected decrements the stream client gauge.
func (c *Collector) ClientDisconnected() { c.sseClients.Dec() }

// EventBroadcast counts one fan-out.
func (c *Collector) EventBroadcast() { c.sseBroadcast.Inc() }

// EventDropped counts one skipped client delivery.
func (c *Collector) EventDropped() { c.sseDropped.Inc() }

// Middleware records request counts and latency. The route label is the chi
// pattern so ids do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

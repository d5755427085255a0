package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/d21hq/d21/internal/web/middleware"
)

// Metrics holds the Prometheus collectors of the server. Each Metrics owns
// its registry, so tests can build as many servers as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rehost   *prometheus.CounterVec
	geocode  *prometheus.CounterVec
	feeds    prometheus.Gauge
}

// NewMetrics registers the collectors, plus the Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "d21",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "d21",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		rehost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "d21",
			Name:      "image_rehost_total",
			Help:      "Image rehost attempts by outcome.",
		}, []string{"outcome"}),
		geocode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "d21",
			Name:      "geocode_requests_total",
			Help:      "Location searches by result.",
		}, []string{"result"}),
		feeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "d21",
			Name:      "submission_feeds_open",
			Help:      "Open submission websocket feeds.",
		}),
	}

	m.registry.MustRegister(
		m.requests, m.duration, m.rehost, m.geocode, m.feeds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRehost counts one image helper outcome. It satisfies
// imagehost.Observer.
func (m *Metrics) ObserveRehost(outcome string) {
	m.rehost.WithLabelValues(outcome).Inc()
}

// observeGeocode counts one location search.
func (m *Metrics) observeGeocode(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.geocode.WithLabelValues(result).Inc()
}

// Middleware records request count and latency by chi route pattern. The
// pattern is read after routing, so unmatched paths share one label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewResponseWriter(w)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

/*
Package metrics registers the prometheus collectors exposed on /metrics.
*/
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

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_ws_active_connections",
			Help: "Number of open websocket connections.",
		},
	)
	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_online_users",
			Help: "Number of user ids currently present in the presence registry.",
		},
	)
	activeRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairchat_active_rooms",
			Help: "Number of rooms with at least one subscribed connection.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_ws_events_total",
			Help: "Inbound websocket events by type.",
		},
		[]string{"event"},
	)
	wsEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairchat_ws_events_dropped_total",
			Help: "Inbound websocket events that had no effect, by type and reason.",
		},
		[]string{"event", "reason"},
	)
	wsSendDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairchat_ws_send_dropped_total",
			Help: "Outbound events dropped because a connection send queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		onlineUsers,
		activeRooms,
		wsEventsTotal,
		wsEventsDroppedTotal,
		wsSendDroppedTotal,
	)
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware records request counts and latencies labelled by chi route pattern.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// IncWSActive counts a newly registered websocket connection.
func IncWSActive() {
	wsActiveConnections.Inc()
}

// DecWSActive uncounts a torn-down websocket connection.
func DecWSActive() {
	wsActiveConnections.Dec()
}

// SetOnlineUsers records the number of user ids with presence.
func SetOnlineUsers(n int) {
	onlineUsers.Set(float64(n))
}

// SetActiveRooms records the number of rooms with at least one subscriber.
func SetActiveRooms(n int) {
	activeRooms.Set(float64(n))
}

// IncWSEvent counts an applied inbound event by type.
func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

// IncWSDropped counts an inbound event that had no effect, by type and reason.
func IncWSDropped(event, reason string) {
	wsEventsDroppedTotal.WithLabelValues(event, reason).Inc()
}

// IncSendDropped counts an outbound event lost to a full send queue.
func IncSendDropped() {
	wsSendDroppedTotal.Inc()
}

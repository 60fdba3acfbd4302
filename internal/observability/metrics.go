// Package observability holds the Prometheus instrumentation shared
// across the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesBooked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_booked_total",
		Help: "Rides booked and assigned to a driver.",
	})

	RidesSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_settled_total",
		Help: "Completed rides consumed from the journal for settlement.",
	})

	DispatchNoDrivers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_dispatch_no_drivers_total",
		Help: "Booking attempts that found no available driver.",
	})

	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_driver_reservation_conflicts_total",
		Help: "Driver reservations lost to a concurrent dispatch.",
	})

	DriversAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ridehail_drivers_available",
		Help: "Drivers currently available for dispatch.",
	})

	RideTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridehail_ride_transitions_total",
		Help: "Committed ride status transitions.",
	}, []string{"from", "to"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridehail_events_published_total",
		Help: "Realtime events fanned out to subscribers.",
	}, []string{"type"})

	WSSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ridehail_ws_sessions",
		Help: "Open WebSocket sessions.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ridehail_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ridehail_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chiRoutePattern(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// chiRoutePattern returns the matched route pattern so metrics stay
// low-cardinality even with IDs in the path.
func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voyya"

var (
	RidesCreated      = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_created_total", Help: "Total number of rides created"})
	RideStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_status_changes_total", Help: "Ride status changes by new status"},
		[]string{"status"},
	)
	DriverLocationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "driver_location_updates_total", Help: "Driver location reports by source"},
		[]string{"source"},
	)
	DriversOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "drivers_online", Help: "Drivers that went available minus those that went offline since start"})

	RideRequestsExpired = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ride_requests_expired_total", Help: "Ride requests removed after expiry"})

	PaymentOps = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "payment_operations_total", Help: "Payment gateway calls by operation and result"},
		[]string{"op", "result"},
	)
	DispatchEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "dispatch_events_total", Help: "Lifecycle events published by result"},
		[]string{"result"},
	)

	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "relay_connections", Help: "Open websocket relay connections"})
	RelayEvents      = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "relay_events_total", Help: "Relay events by name and direction"},
		[]string{"event", "direction"},
	)
	RelayDropped = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "relay_dropped_total", Help: "Relay messages dropped on full client or broker buffers"})

	ConsumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "consumer_messages_total", Help: "Location messages consumed by result"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result labels a call outcome for counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

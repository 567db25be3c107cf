package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RentalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentals_created_total",
		Help: "Rentals created",
	})

	RentalsReturned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rentals_returned_total",
		Help: "Rentals returned",
	})

	LateFeesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "late_fees_total",
		Help: "Sum of late fees charged on return",
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payments recorded by method",
	}, []string{"method"})

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_dashboard_clients",
		Help: "Connected dashboard websocket clients",
	})
)

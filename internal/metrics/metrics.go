package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	OrdersPlaced   prometheus.Counter
	ProductsPurged prometheus.Counter
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "orders_placed_total",
		Help:      "Total number of orders successfully placed.",
	})
	productsPurged := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "products_purged_total",
		Help:      "Total number of trashed products permanently purged.",
	})

	prometheus.MustRegister(requests, latency, ordersPlaced, productsPurged)
	return &ServerMetrics{
		Requests:       requests,
		LatencyMS:      latency,
		OrdersPlaced:   ordersPlaced,
		ProductsPurged: productsPurged,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

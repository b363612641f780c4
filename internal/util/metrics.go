package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales recorded",
	})

	StatusRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_status_refresh_total",
		Help: "Total number of courier status checks by resulting order status",
	}, []string{"order_status"})

	StatusRefreshFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_status_refresh_failed_total",
		Help: "Total number of failed courier status checks",
	}, []string{"reason"})

	StatusRefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "courier_status_refresh_latency_seconds",
		Help:    "Latency of courier webhook status checks",
		Buckets: prometheus.DefBuckets,
	})

	InventoryRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_restored_total",
		Help: "Total number of line items whose stock was restored after cancellation",
	})

	InventoryRestoreFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_restore_failed_total",
		Help: "Total number of line items whose stock restoration failed",
	})

	ImagesCompressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "images_compressed_total",
		Help: "Total number of product images compressed",
	})

	ImagesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "images_skipped_total",
		Help: "Total number of product images already under the size budget",
	})

	ImageOptimizeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_optimize_errors_total",
		Help: "Total number of per-image failures during bulk optimization",
	})

	ImageBytesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_bytes_saved_total",
		Help: "Total bytes shaved off product images",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

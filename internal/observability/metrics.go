package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_dataset_loads_total",
			Help: "Total number of dataset loads from disk",
		},
		[]string{"status"},
	)

	DatasetLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sales_dashboard_dataset_load_duration_seconds",
			Help:    "Duration of dataset loads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sales_dashboard_dataset_rows",
			Help: "Number of rows in the most recently loaded dataset",
		},
		[]string{"source"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_cache_lookups_total",
			Help: "Total number of dataset cache lookups",
		},
		[]string{"result"},
	)

	QuestionsAnsweredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_questions_answered_total",
			Help: "Total number of business questions answered",
		},
		[]string{"question"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_dashboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sales_dashboard_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_conversions_total",
			Help: "Item outcomes by format class",
		},
		[]string{"class", "status", "reason"},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_uploads_total",
			Help: "PDF uploads to the destination prefix",
		},
		[]string{"status"},
	)

	Dropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_dropped_total",
			Help: "Listed objects with an extension no converter handles",
		},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docconv_tool_duration_seconds",
			Help:    "Wall time of office tool invocations",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"result"}, // ok, exit, timeout, not_found, output_missing
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docconv_run_duration_seconds",
			Help:    "Wall time of full pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docconv_active_runs",
			Help: "Pipeline runs currently in progress",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)

	Tasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_tasks_total",
			Help: "Conversion tasks consumed by the worker",
		},
		[]string{"result"}, // ok, failed, invalid
	)
)

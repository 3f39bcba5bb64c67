package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_search_requests_total",
			Help: "Total number of property searches by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "property_search_results",
			Help:    "Number of properties returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 500},
		},
	)

	SearchCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_search_cache_total",
			Help: "Search cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	SearchTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_search_truncated_total",
			Help: "Searches whose total hits exceeded the result cap",
		},
		[]string{"backend"},
	)

	QueryParseFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_parse_fallbacks_total",
			Help: "Natural-language queries that fell back to empty criteria",
		},
		[]string{"language", "reason"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_requests_total",
			Help: "Requests sent to the generative AI service by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "property_events_published_total",
			Help: "Catalog events published to the broker",
		},
		[]string{"event", "outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

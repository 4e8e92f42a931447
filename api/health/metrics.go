package health

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tableside",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, streams excluded",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableside",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// OpenStreams counts live server-sent event connections per surface.
	OpenStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tableside",
			Subsystem: "http",
			Name:      "open_streams",
			Help:      "Open surface event streams",
		},
		[]string{"surface"},
	)
)

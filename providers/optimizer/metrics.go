package optimizer

import "github.com/prometheus/client_golang/prometheus"

// Ausgänge eines Optimierungs-Requests.
const (
	outcomeSuccess       = "success"
	outcomeMalformed     = "malformed"
	outcomeRequestFailed = "request_failed"
	outcomeNetworkError  = "network_error"
	outcomeInvalidInput  = "invalid_input"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "molgenx_optimization_requests_total",
			Help: "Total number of optimization requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "molgenx_optimization_duration_seconds",
			Help:    "Duration of optimization requests against the backend.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

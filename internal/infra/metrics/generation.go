package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsSubmitted,
		jobsFinalized,
		quotaDenied,
		providerLatency,
		pollIterations,
		dispatchInflight,
	)
}

var (
	jobsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_submitted_total",
			Help: "Jobs accepted by Submit per modality.",
		},
		[]string{"modality"},
	)

	jobsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_jobs_finalized_total",
			Help: "Terminal job writes per modality and status.",
		},
		[]string{"modality", "status"},
	)

	quotaDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_quota_denied_total",
			Help: "Submissions rejected by the daily limit.",
		},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_provider_latency_seconds",
			Help:    "Provider call latency per operation.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation", "success"},
	)

	pollIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "generation_poll_iterations",
			Help:    "Status polls spent per video job.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
		},
	)

	dispatchInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generation_dispatch_inflight",
			Help: "Dispatch goroutines currently holding a concurrency slot.",
		},
	)
)

func JobSubmitted(modality string) {
	jobsSubmitted.WithLabelValues(norm(modality)).Inc()
}

func JobFinalized(modality, status string) {
	jobsFinalized.WithLabelValues(norm(modality), norm(status)).Inc()
}

func QuotaDenied() {
	quotaDenied.Inc()
}

// ObserveProviderCall records one provider round trip.
func ObserveProviderCall(operation string, elapsed time.Duration, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	providerLatency.WithLabelValues(norm(operation), success).Observe(elapsed.Seconds())
}

func ObservePolls(n int) {
	pollIterations.Observe(float64(n))
}

func DispatchStarted() { dispatchInflight.Inc() }

func DispatchDone() { dispatchInflight.Dec() }

func norm(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	examSubmissionsTotal prometheus.Counter
	examEvaluationsTotal prometheus.Counter
	adminRequestsTotal   *prometheus.CounterVec
	adminLatencySeconds  *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		examSubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total number of exam submissions accepted.",
		})

		examEvaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_evaluations_total",
			Help: "Total number of exam evaluations persisted.",
		})

		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(examSubmissionsTotal, examEvaluationsTotal, adminRequestsTotal, adminLatencySeconds)
	})
}

// ExamSubmissions exposes the submission counter.
func ExamSubmissions() prometheus.Counter {
	RegisterMetrics()
	return examSubmissionsTotal
}

// ExamEvaluations exposes the evaluation counter.
func ExamEvaluations() prometheus.Counter {
	RegisterMetrics()
	return examEvaluationsTotal
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

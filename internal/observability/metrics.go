package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	opportunityEditsTotal *prometheus.CounterVec
	assessmentsTotal      *prometheus.CounterVec
	eligibilityTotal      *prometheus.CounterVec
	notificationFailures  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the marketplace API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		opportunityEditsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_opportunity_edits_total",
			Help: "Opportunity edit attempts by result.",
		}, []string{"result"})

		assessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_evidence_transitions_total",
			Help: "Evidence lifecycle transitions by target status and result.",
		}, []string{"transition", "result"})

		eligibilityTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_eligibility_decisions_total",
			Help: "Eligibility decisions by outcome.",
		}, []string{"can_respond", "reason"})

		notificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_notification_failures_total",
			Help: "Workflow events that could not be handed to the notifier.",
		}, []string{"event_kind"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			opportunityEditsTotal,
			assessmentsTotal,
			eligibilityTotal,
			notificationFailures,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// OpportunityEdits counts edits labelled applied, noop or failed.
func OpportunityEdits() *prometheus.CounterVec {
	RegisterMetrics()
	return opportunityEditsTotal
}

// EvidenceTransitions counts evidence lifecycle steps.
func EvidenceTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentsTotal
}

// EligibilityDecisions counts eligibility evaluations.
func EligibilityDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return eligibilityTotal
}

// NotificationFailures counts swallowed event delivery failures.
func NotificationFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationFailures
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Schedule metrics
	TransferRequests *prometheus.CounterVec
	ShiftClaims      *prometheus.CounterVec

	// Discount metrics
	DiscountApplications *prometheus.CounterVec
	DiscountAmount       prometheus.Counter
	SweepRuns            *prometheus.CounterVec
	SweepDeactivated     prometheus.Counter

	// Messaging metrics
	EventsPublished *prometheus.CounterVec
	EmailsSent      *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
// A nil reg means the default prometheus registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		TransferRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transfer_requests_total",
			Help:      "Transfer request operations by action and outcome",
		}, []string{"action", "outcome"}),
		ShiftClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "shift_claims_total",
			Help:      "Shift self-registration attempts by outcome",
		}, []string{"outcome"}),

		DiscountApplications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discount_applications_total",
			Help:      "Discount code applications by outcome",
		}, []string{"outcome"}),
		DiscountAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discount_amount_total",
			Help:      "Sum of discounts granted",
		}),
		SweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discount_sweep_runs_total",
			Help:      "Expired discount sweep runs by outcome",
		}, []string{"outcome"}),
		SweepDeactivated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discount_sweep_deactivated_total",
			Help:      "Discount codes deactivated by the sweep",
		}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Domain events published by type and outcome",
		}, []string{"type", "outcome"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emails_sent_total",
			Help:      "Notification emails by outcome",
		}, []string{"outcome"}),
	}
}

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

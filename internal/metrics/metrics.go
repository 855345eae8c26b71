package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_verifications_total",
			Help: "Payment verifications by gateway and outcome",
		},
		[]string{"gateway", "outcome"},
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_verification_duration_seconds",
			Help:    "Duration of payment verifications including the gateway round trip",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)

	refundFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_refund_failures_total",
			Help: "Compensating refunds that failed and need manual reconciliation",
		},
		[]string{"gateway"},
	)

	ticketsSoldTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_sold_total",
			Help: "Tickets confirmed by ticket class",
		},
		[]string{"ticket_type"},
	)
)

// Outcome labels beyond the payment statuses
const (
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// ObserveVerification records one finished verification
func ObserveVerification(gateway, outcome string, elapsed time.Duration) {
	verificationsTotal.WithLabelValues(gateway, outcome).Inc()
	verificationDuration.WithLabelValues(gateway).Observe(elapsed.Seconds())
}

// RefundFailed records a compensating refund that could not be issued
func RefundFailed(gateway string) {
	refundFailuresTotal.WithLabelValues(gateway).Inc()
}

// TicketsSold adds n confirmed tickets of ticketType
func TicketsSold(ticketType string, n int) {
	if n <= 0 {
		return
	}
	ticketsSoldTotal.WithLabelValues(ticketType).Add(float64(n))
}

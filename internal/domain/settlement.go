package domain

// Outcome is the terminal result of a verification
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeRefunded Outcome = "refunded"
)

// PaymentStatus maps an outcome to the payment status it commits
func (o Outcome) PaymentStatus() PaymentStatus {
	switch o {
	case OutcomeSuccess:
		return PaymentStatusSuccess
	case OutcomeRefunded:
		return PaymentStatusRefunded
	}
	return PaymentStatusFailed
}

// Settlement is one terminal transition applied by reference. For a success,
// TicketCount tickets of TicketType are added to the event's sold counter
// only if they fit.
type Settlement struct {
	Reference              string
	Outcome                Outcome
	TicketType             TicketType
	TicketCount            int
	GatewayPaymentIntentID string
	GatewayTransactionID   string
	FailureReason          string
}

// IsSale reports whether the settlement consumes inventory
func (s Settlement) IsSale() bool {
	return s.Outcome == OutcomeSuccess
}

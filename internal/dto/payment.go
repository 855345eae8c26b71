package dto

import (
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

// VerifyPaymentRequest represents a request to verify a gateway payment
type VerifyPaymentRequest struct {
	// Reference is the Stripe checkout session id or the Wave client reference
	Reference string `json:"reference" binding:"required"`
	Gateway   string `json:"gateway" binding:"required"`
}

// VerifyPaymentResponse represents the committed outcome of a verification
type VerifyPaymentResponse struct {
	Outcome        string            `json:"outcome"`
	Message        string            `json:"message"`
	AlreadySettled bool              `json:"already_settled"`
	RefundIssued   bool              `json:"refund_issued"`
	FailureDetail  string            `json:"failure_detail,omitempty"`
	Payment        *PaymentResponse  `json:"payment,omitempty"`
	Tickets        []*TicketResponse `json:"tickets,omitempty"`
	Event          *EventResponse    `json:"event,omitempty"`
}

// PurchaseRequest represents a request to buy tickets of one class
type PurchaseRequest struct {
	EventID    string `json:"event_id" binding:"required"`
	TicketType string `json:"ticket_type" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=10"`
	Gateway    string `json:"gateway" binding:"required"`
}

// PurchaseResponse represents an opened checkout
type PurchaseResponse struct {
	Reference       string            `json:"reference"`
	VerifyReference string            `json:"verify_reference"`
	CheckoutURL     string            `json:"checkout_url"`
	SessionID       string            `json:"session_id,omitempty"`
	Payment         *PaymentResponse  `json:"payment"`
	Tickets         []*TicketResponse `json:"tickets"`
}

// PaymentResponse represents a payment in API response
type PaymentResponse struct {
	ID                     string     `json:"id"`
	Reference              string     `json:"reference"`
	Amount                 string     `json:"amount"`
	Currency               string     `json:"currency"`
	Gateway                string     `json:"gateway"`
	Status                 string     `json:"status"`
	EventID                string     `json:"event_id"`
	UserID                 string     `json:"user_id"`
	TicketIDs              []string   `json:"ticket_ids"`
	CheckoutURL            string     `json:"checkout_url,omitempty"`
	GatewayPaymentIntentID string     `json:"gateway_payment_intent_id,omitempty"`
	GatewayTransactionID   string     `json:"gateway_transaction_id,omitempty"`
	FailureReason          string     `json:"failure_reason,omitempty"`
	VerifiedAt             *time.Time `json:"verified_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// ListPaymentsQuery holds the admin payment listing filters
type ListPaymentsQuery struct {
	EventID string `form:"event_id"`
	Status  string `form:"status"`
	Gateway string `form:"gateway"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// Filter converts the query to a repository filter
func (q *ListPaymentsQuery) Filter() (domain.PaymentFilter, error) {
	filter := domain.PaymentFilter{
		EventID: q.EventID,
		Status:  domain.PaymentStatus(q.Status),
	}
	if q.Gateway != "" {
		gw, err := domain.ParseGateway(q.Gateway)
		if err != nil {
			return filter, err
		}
		filter.Gateway = gw
	}
	return filter, nil
}

// FromPayment converts a domain Payment to PaymentResponse
func FromPayment(p *domain.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:                     p.ID,
		Reference:              p.Reference,
		Amount:                 p.Amount.StringFixed(2),
		Currency:               p.Currency,
		Gateway:                string(p.Gateway),
		Status:                 string(p.Status),
		EventID:                p.EventID,
		UserID:                 p.UserID,
		TicketIDs:              p.TicketIDs,
		CheckoutURL:            p.CheckoutURL,
		GatewayPaymentIntentID: p.GatewayPaymentIntentID,
		GatewayTransactionID:   p.GatewayTransactionID,
		FailureReason:          p.FailureReason,
		VerifiedAt:             p.VerifiedAt,
		CreatedAt:              p.CreatedAt,
	}
}

// FromPayments converts a slice of payments
func FromPayments(payments []*domain.Payment) []*PaymentResponse {
	out := make([]*PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, FromPayment(p))
	}
	return out
}

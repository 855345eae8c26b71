package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment (matches DB ENUM)
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsValid reports whether s is a known status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsFinal reports whether no further transition is allowed
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Gateway identifies the payment processor
type Gateway string

const (
	GatewayStripe Gateway = "stripe"
	GatewayWave   Gateway = "wave"
)

// ParseGateway normalizes a gateway name
func ParseGateway(name string) (Gateway, error) {
	switch Gateway(strings.ToLower(strings.TrimSpace(name))) {
	case GatewayStripe:
		return GatewayStripe, nil
	case GatewayWave:
		return GatewayWave, nil
	}
	return "", ErrUnknownGateway
}

// Payment is the money side of a purchase. Reference is unique and is the
// correlation key shared with the tickets and the gateway session.
type Payment struct {
	ID                     string          `json:"id"`
	Reference              string          `json:"reference"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	Gateway                Gateway         `json:"gateway"`
	Status                 PaymentStatus   `json:"status"`
	EventID                string          `json:"event_id"`
	UserID                 string          `json:"user_id"`
	TicketIDs              []string        `json:"ticket_ids"`
	CheckoutURL            string          `json:"checkout_url,omitempty"`
	GatewayPaymentIntentID string          `json:"gateway_payment_intent_id,omitempty"`
	GatewayTransactionID   string          `json:"gateway_transaction_id,omitempty"`
	FailureReason          string          `json:"failure_reason,omitempty"`
	VerifiedAt             *time.Time      `json:"verified_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// NewPayment creates a pending payment with a fresh reference
func NewPayment(eventID, userID string, gateway Gateway, amount decimal.Decimal, currency string) (*Payment, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if eventID == "" {
		return nil, ErrInvalidEvent
	}
	if gateway != GatewayStripe && gateway != GatewayWave {
		return nil, ErrUnknownGateway
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Payment{
		ID:        uuid.New().String(),
		Reference: uuid.New().String(),
		Amount:    amount,
		Currency:  strings.ToUpper(currency),
		Gateway:   gateway,
		Status:    PaymentStatusPending,
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PaymentDetails is a payment hydrated with its tickets, event and buyer
type PaymentDetails struct {
	Payment *Payment  `json:"payment"`
	Tickets []*Ticket `json:"tickets"`
	Event   *Event    `json:"event"`
	User    *User     `json:"user,omitempty"`
}

// TicketType returns the single class shared by every ticket of the payment
func (d *PaymentDetails) TicketType() (TicketType, error) {
	if len(d.Tickets) == 0 {
		return "", ErrNoTickets
	}
	first := d.Tickets[0].TicketType
	for _, t := range d.Tickets[1:] {
		if t.TicketType != first {
			return "", ErrMixedTicketTypes
		}
	}
	return first, nil
}

// PaymentFilter narrows admin payment listings
type PaymentFilter struct {
	EventID string
	Status  PaymentStatus
	Gateway Gateway
}

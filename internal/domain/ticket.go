package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketType is the inventory bucket a ticket is drawn from
type TicketType string

const (
	TicketTypeStandard TicketType = "standard"
	TicketTypeVIP      TicketType = "vip"
)

// ParseTicketType validates a ticket type, empty means standard
func ParseTicketType(s string) (TicketType, error) {
	switch TicketType(s) {
	case "", TicketTypeStandard:
		return TicketTypeStandard, nil
	case TicketTypeVIP:
		return TicketTypeVIP, nil
	}
	return "", ErrInvalidTicketType
}

// TicketStatus mirrors the owning payment outcome
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "pending"
	TicketStatusSuccess TicketStatus = "success"
	TicketStatusFailed  TicketStatus = "failed"
)

// TicketStatusFor maps a final payment status to the ticket status it implies
func TicketStatusFor(s PaymentStatus) TicketStatus {
	switch s {
	case PaymentStatusSuccess:
		return TicketStatusSuccess
	case PaymentStatusFailed, PaymentStatusRefunded:
		return TicketStatusFailed
	}
	return TicketStatusPending
}

// Ticket is one admission. UserID is the current holder.
type Ticket struct {
	ID               string       `json:"id"`
	PaymentReference string       `json:"payment_reference"`
	EventID          string       `json:"event_id"`
	UserID           string       `json:"user_id"`
	TicketType       TicketType   `json:"ticket_type"`
	Status           TicketStatus `json:"status"`
	Scanned          bool         `json:"scanned"`
	ScannedAt        *time.Time   `json:"scanned_at,omitempty"`
	TransferredFrom  string       `json:"transferred_from,omitempty"`
	TransferredAt    *time.Time   `json:"transferred_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewTickets creates quantity pending tickets bound to a payment reference
func NewTickets(payment *Payment, ticketType TicketType, quantity int) []*Ticket {
	now := time.Now().UTC()
	tickets := make([]*Ticket, 0, quantity)
	for i := 0; i < quantity; i++ {
		tickets = append(tickets, &Ticket{
			ID:               uuid.New().String(),
			PaymentReference: payment.Reference,
			EventID:          payment.EventID,
			UserID:           payment.UserID,
			TicketType:       ticketType,
			Status:           TicketStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return tickets
}

// CheckTransfer validates that holder may hand this ticket to recipient
func (t *Ticket) CheckTransfer(holderID, recipientID string, event *Event, now time.Time) error {
	if t.UserID != holderID {
		return ErrNotTicketOwner
	}
	if recipientID == holderID {
		return ErrSelfTransfer
	}
	if t.Status != TicketStatusSuccess {
		return ErrInvalidTicketState
	}
	if t.Scanned {
		return ErrTicketAlreadyUsed
	}
	if event != nil && event.IsPast(now) {
		return ErrEventPast
	}
	return nil
}

// CheckScan validates that the ticket may be admitted
func (t *Ticket) CheckScan(event *Event, now time.Time) error {
	if t.Status != TicketStatusSuccess {
		return ErrInvalidTicketState
	}
	if t.Scanned {
		return ErrTicketAlreadyUsed
	}
	if event != nil && event.IsPast(now) {
		return ErrEventPast
	}
	return nil
}

package dto

import (
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

// TransferTicketRequest names the recipient of a ticket transfer
type TransferTicketRequest struct {
	ToEmail string `json:"to_email" binding:"required,email"`
}

// ScanTicketRequest carries the QR token presented at the venue
type ScanTicketRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

// TicketResponse represents a ticket in API response
type TicketResponse struct {
	ID               string     `json:"id"`
	PaymentReference string     `json:"payment_reference"`
	EventID          string     `json:"event_id"`
	UserID           string     `json:"user_id"`
	TicketType       string     `json:"ticket_type"`
	Status           string     `json:"status"`
	Scanned          bool       `json:"scanned"`
	ScannedAt        *time.Time `json:"scanned_at,omitempty"`
	TransferredFrom  string     `json:"transferred_from,omitempty"`
	TransferredAt    *time.Time `json:"transferred_at,omitempty"`
	QRCode           string     `json:"qr_code,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// FromTicket converts a domain Ticket to TicketResponse
func FromTicket(t *domain.Ticket) *TicketResponse {
	if t == nil {
		return nil
	}
	return &TicketResponse{
		ID:               t.ID,
		PaymentReference: t.PaymentReference,
		EventID:          t.EventID,
		UserID:           t.UserID,
		TicketType:       string(t.TicketType),
		Status:           string(t.Status),
		Scanned:          t.Scanned,
		ScannedAt:        t.ScannedAt,
		TransferredFrom:  t.TransferredFrom,
		TransferredAt:    t.TransferredAt,
		CreatedAt:        t.CreatedAt,
	}
}

// FromTickets converts a slice of tickets
func FromTickets(tickets []*domain.Ticket) []*TicketResponse {
	out := make([]*TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, FromTicket(t))
	}
	return out
}

// FromTicketView attaches the QR code of a confirmed ticket
func FromTicketView(t *domain.Ticket, qrCode string) *TicketResponse {
	resp := FromTicket(t)
	if resp != nil {
		resp.QRCode = qrCode
	}
	return resp
}

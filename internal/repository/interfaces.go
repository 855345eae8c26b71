package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-ticketing/internal/domain"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// Create stores a pending payment together with its tickets
	Create(ctx context.Context, payment *domain.Payment, tickets []*domain.Ticket) error
	// GetByReference retrieves a payment by its unique reference
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	// GetDetailsByReference hydrates a payment with its tickets, event and buyer
	GetDetailsByReference(ctx context.Context, reference string) (*domain.PaymentDetails, error)
	// SetCheckoutURL records the hosted checkout link of a pending payment
	SetCheckoutURL(ctx context.Context, reference, url string) error
	// List returns payments matching filter, newest first
	List(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]*domain.Payment, error)
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// GetByID retrieves a ticket by ID
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// ListByUser returns tickets currently held by userID
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Ticket, error)
	// Transfer moves a ticket from one holder to another. It fails with
	// ErrInvalidTicketState if the ticket changed holder, status or scan
	// state since it was read.
	Transfer(ctx context.Context, ticketID, fromUserID, toUserID string, at time.Time) (*domain.Ticket, error)
	// MarkScanned flips scanned from false to true, ErrTicketAlreadyUsed otherwise
	MarkScanned(ctx context.Context, ticketID string, at time.Time) (*domain.Ticket, error)
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *domain.User) error
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a user by email, case-insensitive
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// SettlementRepository applies terminal verification outcomes
type SettlementRepository interface {
	// Settle commits one outcome for a pending payment in a single unit:
	// payment status, ticket statuses and, for a success, the capacity-gated
	// sold increment with sold_out recomputed across both classes.
	//
	// Errors:
	//   ErrPaymentNotFound     no payment has the reference
	//   ErrPaymentAlreadyFinal payment was settled before; the returned
	//                          details reflect that earlier outcome
	//   ErrCapacityExceeded    the sale does not fit; nothing was written
	Settle(ctx context.Context, s domain.Settlement) (*domain.PaymentDetails, error)
}

// Repositories groups every store the services need
type Repositories struct {
	Payments    PaymentRepository
	Tickets     TicketRepository
	Events      EventRepository
	Users       UserRepository
	Settlements SettlementRepository
}
